package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertInsertsAndUpdates(t *testing.T) {
	tbl := NewTable("self")
	tbl.Upsert("node-a", "10.0.0.1", 7777, []byte{1})

	p, ok := tbl.Lookup("node-a")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", p.Address)
	assert.True(t, p.IsActive)

	tbl.Upsert("node-a", "10.0.0.2", 8888, []byte{2})
	p, ok = tbl.Lookup("node-a")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", p.Address)
	assert.Equal(t, 8888, p.Port)
}

func TestLookupAbsent(t *testing.T) {
	tbl := NewTable("self")
	_, ok := tbl.Lookup("nobody")
	assert.False(t, ok)
}

func TestMarkStaleDoesNotRemoveEntries(t *testing.T) {
	tbl := NewTable("self")
	fixedNow := time.Now()
	tbl.nowFunc = func() time.Time { return fixedNow }
	tbl.Upsert("node-a", "10.0.0.1", 7777, nil)

	tbl.nowFunc = func() time.Time { return fixedNow.Add(2 * time.Minute) }
	tbl.MarkStale(60 * time.Second)

	p, ok := tbl.Lookup("node-a")
	require.True(t, ok, "mark_stale must not remove entries")
	assert.False(t, p.IsActive)
}

func TestTouchUpdatesLastSeenOnly(t *testing.T) {
	tbl := NewTable("self")
	fixedNow := time.Now()
	tbl.nowFunc = func() time.Time { return fixedNow }
	tbl.Upsert("node-a", "10.0.0.1", 7777, nil)

	tbl.nowFunc = func() time.Time { return fixedNow.Add(time.Millisecond) }
	tbl.MarkStale(0) // any elapsed time exceeds a zero threshold
	p, _ := tbl.Lookup("node-a")
	assert.False(t, p.IsActive)

	later := fixedNow.Add(time.Second)
	tbl.nowFunc = func() time.Time { return later }
	tbl.Touch("node-a")

	p, _ = tbl.Lookup("node-a")
	assert.Equal(t, later, p.LastSeen)
	assert.False(t, p.IsActive, "touch alone must not reactivate a stale peer")
}

func TestActiveExcludesSelfAndStale(t *testing.T) {
	tbl := NewTable("self")
	tbl.Upsert("self", "10.0.0.1", 1, nil)
	tbl.Upsert("node-a", "10.0.0.2", 2, nil)
	tbl.Upsert("node-b", "10.0.0.3", 3, nil)
	tbl.MarkStale(time.Hour) // nothing stale yet

	active := tbl.Active()
	ids := map[string]bool{}
	for _, p := range active {
		ids[p.ID] = true
	}
	assert.Len(t, active, 2)
	assert.True(t, ids["node-a"])
	assert.True(t, ids["node-b"])
	assert.False(t, ids["self"])
}

func TestActiveReturnsSnapshotCopy(t *testing.T) {
	tbl := NewTable("self")
	tbl.Upsert("node-a", "10.0.0.1", 1, nil)

	snap := tbl.Active()
	require.Len(t, snap, 1)
	snap[0].Address = "mutated"

	p, _ := tbl.Lookup("node-a")
	assert.Equal(t, "10.0.0.1", p.Address)
}
