// Package peer implements the C4 peer table of spec.md §4.4: the mesh's
// current view of who is reachable, shared between the relay's receive
// path and its maintenance/send paths.
package peer

import (
	"sync"
	"time"
)

// Peer is one node's record in the table.
type Peer struct {
	ID        string
	Address   string
	Port      int
	PublicKey []byte
	LastSeen  time.Time
	IsActive  bool
}

// Table is a concurrency-safe peer registry, grounded on the keyMap/RWMutex
// shape WireGuard's device.peers uses: a map guarded by a single RWMutex,
// read-heavy operations taking the read lock and mutations taking the
// write lock.
type Table struct {
	mu      sync.RWMutex
	byID    map[string]*Peer
	selfID  string
	nowFunc func() time.Time
}

// NewTable constructs an empty table. selfID is excluded from Active()
// snapshots, per spec.md §4.4 ("excluding self").
func NewTable(selfID string) *Table {
	return &Table{
		byID:    make(map[string]*Peer),
		selfID:  selfID,
		nowFunc: time.Now,
	}
}

func (t *Table) now() time.Time {
	if t.nowFunc != nil {
		return t.nowFunc()
	}
	return time.Now()
}

// Upsert implements upsert(peer_id, address, port, public_key): insert or
// update, setting last_seen = now and is_active = true.
func (t *Table) Upsert(peerID, address string, port int, publicKey []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if existing, ok := t.byID[peerID]; ok {
		existing.Address = address
		existing.Port = port
		existing.PublicKey = publicKey
		existing.LastSeen = now
		existing.IsActive = true
		return
	}
	t.byID[peerID] = &Peer{
		ID:        peerID,
		Address:   address,
		Port:      port,
		PublicKey: publicKey,
		LastSeen:  now,
		IsActive:  true,
	}
}

// Touch implements touch(peer_id): updates last_seen only, leaving
// is_active untouched so a previously-marked-stale peer does not flip back
// to active on a mere liveness signal alone.
func (t *Table) Touch(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.byID[peerID]; ok {
		p.LastSeen = t.now()
	}
}

// MarkStale implements mark_stale(): for every peer where
// now - last_seen > threshold, set is_active = false. Entries are never
// removed, per spec.md §4.4.
func (t *Table) MarkStale(threshold time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for _, p := range t.byID {
		if now.Sub(p.LastSeen) > threshold {
			p.IsActive = false
		}
	}
}

// Active implements active(): a snapshot of peers with is_active = true,
// excluding self. The returned slice is a copy; callers may not observe
// later mutations to the table through it.
func (t *Table) Active() []Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Peer, 0, len(t.byID))
	for id, p := range t.byID {
		if id == t.selfID || !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out
}

// Lookup implements lookup(peer_id): returns the peer record and whether
// it was present.
func (t *Table) Lookup(peerID string) (Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.byID[peerID]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// Len reports the total number of known peers, active or not.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}
