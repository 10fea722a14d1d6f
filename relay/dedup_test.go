package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupSetFirstInsertNotSeen(t *testing.T) {
	d := newDedupSet(time.Minute)
	assert.False(t, d.CheckAndInsert("a"))
}

func TestDedupSetSecondInsertSeen(t *testing.T) {
	d := newDedupSet(time.Minute)
	d.CheckAndInsert("a")
	assert.True(t, d.CheckAndInsert("a"))
}

func TestDedupSetGCPrunesOldEntries(t *testing.T) {
	d := newDedupSet(10 * time.Second)
	fixedNow := time.Now()
	d.nowFunc = func() time.Time { return fixedNow }
	d.CheckAndInsert("old")

	d.nowFunc = func() time.Time { return fixedNow.Add(time.Minute) }
	d.CheckAndInsert("new")
	d.GC()

	assert.Equal(t, 1, d.Len())
	assert.False(t, d.CheckAndInsert("old"), "gc'd id must be treated as unseen again")
}
