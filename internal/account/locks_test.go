package account

import (
	"testing"
	"time"
)

func TestCleanupKeepsHeldLocks(t *testing.T) {
	r := newLockRegistry()
	l := r.acquire("acct-1")
	l.Lock()

	// Backdate the entry so only the pin protects it from cleanup.
	r.mu.Lock()
	r.entries["acct-1"].lastSeen = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	r.cleanupIdle(time.Minute)
	if r.count() != 1 {
		t.Fatalf("held lock was reclaimed; count = %d", r.count())
	}
	got := r.acquire("acct-1")
	if got != l {
		t.Error("acquire minted a fresh mutex for a held account")
	}
	r.release("acct-1")

	l.Unlock()
	r.release("acct-1")

	// Fully released and idle: now reclaimable.
	r.mu.Lock()
	r.entries["acct-1"].lastSeen = time.Now().Add(-time.Hour)
	r.mu.Unlock()
	r.cleanupIdle(time.Minute)
	if r.count() != 0 {
		t.Errorf("idle lock not reclaimed; count = %d", r.count())
	}
}

func TestReleaseWithoutAcquireIsHarmless(t *testing.T) {
	r := newLockRegistry()
	r.release("never-seen")
	if r.count() != 0 {
		t.Errorf("count = %d, want 0", r.count())
	}
}
