package relay

import (
	"sync"
	"time"
)

// dedupSet is the time-bounded seen_ids set of spec.md §4.5. This resolves
// Open Question 1: the original source tried to parse a timestamp out of a
// trailing component of the message id, but ids are plain UUIDs with no
// embedded time, so that filter never matched anything and the set grew
// without bound. Here the set records the arrival wall-clock time for each
// id itself and GC prunes anything older than retention.
type dedupSet struct {
	mu        sync.Mutex
	seenAt    map[string]time.Time
	retention time.Duration
	nowFunc   func() time.Time
}

func newDedupSet(retention time.Duration) *dedupSet {
	return &dedupSet{
		seenAt:    make(map[string]time.Time),
		retention: retention,
		nowFunc:   time.Now,
	}
}

func (d *dedupSet) now() time.Time {
	if d.nowFunc != nil {
		return d.nowFunc()
	}
	return time.Now()
}

// CheckAndInsert reports whether id has already been seen. If it has not,
// it is inserted and false is returned. This is the single atomic
// check-then-insert the receive path's dedup step needs.
func (d *dedupSet) CheckAndInsert(id string) (alreadySeen bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seenAt[id]; ok {
		return true
	}
	d.seenAt[id] = d.now()
	return false
}

// GC removes every id last seen more than retention ago, bounding the
// set's memory regardless of message volume.
func (d *dedupSet) GC() {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now().Add(-d.retention)
	for id, seenAt := range d.seenAt {
		if seenAt.Before(cutoff) {
			delete(d.seenAt, id)
		}
	}
}

func (d *dedupSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seenAt)
}
