package cache

// Package cache provides a small bounded TTL cache for deterministic
// computations, chiefly embedding vectors: the same log message recurs
// constantly in operational logs, and re-encoding it is pure waste.
//
// Eviction is insertion-ordered once the entry cap is reached; expired
// entries are dropped lazily on access.

import (
	"sync"
	"time"
)

type entry struct {
	value    interface{}
	storedAt time.Time
}

// Cache is a TTL- and capacity-bounded key/value cache. Safe for
// concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	order      []string // insertion order for eviction
	maxEntries int
	ttl        time.Duration

	hits   uint64
	misses uint64
}

// New creates a cache holding at most maxEntries items for at most ttl.
// A ttl of zero disables expiry; maxEntries must be positive.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Cache{
		entries:    make(map[string]entry, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting the oldest entries when full.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{value: value, storedAt: time.Now()}

	for len(c.entries) > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
