package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// Sharded is a concurrent key/value cache split across shards so hot symbols
// do not contend on one lock. Values carry their write time; staleness policy
// is the caller's.
type Sharded struct {
	shards [numShards]*shard
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

type entry struct {
	value     any
	updatedAt time.Time
}

// NewSharded creates an empty cache.
func NewSharded() *Sharded {
	c := &Sharded{}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &shard{
			items: make(map[string]entry),
		}
	}
	return c
}

// getShard returns the shard for the given key.
func (c *Sharded) getShard(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Set stores a value under key.
func (c *Sharded) Set(key string, value any) {
	sh := c.getShard(key)
	sh.mu.Lock()
	sh.items[key] = entry{
		value:     value,
		updatedAt: time.Now(),
	}
	sh.mu.Unlock()
}

// Get retrieves the value for key.
func (c *Sharded) Get(key string) (any, bool) {
	sh := c.getShard(key)
	sh.mu.RLock()
	e, ok := sh.items[key]
	sh.mu.RUnlock()
	return e.value, ok
}

// GetWithAge retrieves the value and how long ago it was written.
func (c *Sharded) GetWithAge(key string) (any, time.Duration, bool) {
	sh := c.getShard(key)
	sh.mu.RLock()
	e, ok := sh.items[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	return e.value, time.Since(e.updatedAt), true
}

// Delete removes key from the cache.
func (c *Sharded) Delete(key string) {
	sh := c.getShard(key)
	sh.mu.Lock()
	delete(sh.items, key)
	sh.mu.Unlock()
}

// Len returns total items across all shards.
func (c *Sharded) Len() int {
	total := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		total += len(sh.items)
		sh.mu.RUnlock()
	}
	return total
}

// Cleanup removes entries older than maxAge.
func (c *Sharded) Cleanup(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)

	for _, sh := range c.shards {
		sh.mu.Lock()
		for key, e := range sh.items {
			if e.updatedAt.Before(cutoff) {
				delete(sh.items, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Keep removes every entry whose key is not in keys.
func (c *Sharded) Keep(keys []string) int {
	valid := make(map[string]bool, len(keys))
	for _, k := range keys {
		valid[k] = true
	}

	removed := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		for key := range sh.items {
			if !valid[key] {
				delete(sh.items, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Stats provides cache statistics.
type Stats struct {
	TotalItems  int            `json:"total_items"`
	ShardCounts [numShards]int `json:"shard_counts"`
	OldestAge   time.Duration  `json:"oldest_age"`
}

// Snapshot returns current cache statistics.
func (c *Sharded) Snapshot() Stats {
	stats := Stats{}
	var oldest time.Time

	for i, sh := range c.shards {
		sh.mu.RLock()
		stats.ShardCounts[i] = len(sh.items)
		stats.TotalItems += len(sh.items)
		for _, e := range sh.items {
			if oldest.IsZero() || e.updatedAt.Before(oldest) {
				oldest = e.updatedAt
			}
		}
		sh.mu.RUnlock()
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	return stats
}
