package account

import (
	"sync"
	"time"
)

// lockRegistry hands out one mutex per account so evaluation cycles for the
// same account serialize while different accounts proceed in parallel.
// Entries are pinned while acquired; cleanup only reclaims idle, unpinned
// entries, so a cycle that outlives the ttl cannot lose its mutex to a
// freshly minted one.
type lockRegistry struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	l        sync.Mutex
	pins     int
	lastSeen time.Time
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{
		entries: make(map[string]*lockEntry),
	}
}

// acquire returns the mutex for an account and pins its entry until the
// matching release call.
func (r *lockRegistry) acquire(accountID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[accountID]
	if !ok {
		e = &lockEntry{}
		r.entries[accountID] = e
	}
	e.pins++
	e.lastSeen = time.Now()
	return &e.l
}

// release unpins an account's entry and refreshes its idle stamp.
func (r *lockRegistry) release(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[accountID]; ok {
		if e.pins > 0 {
			e.pins--
		}
		e.lastSeen = time.Now()
	}
}

// count returns the number of live account locks.
func (r *lockRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// cleanupIdle drops unpinned locks not touched for longer than ttl.
func (r *lockRegistry) cleanupIdle(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.pins == 0 && e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
		}
	}
}
