// Package cache provides the single bounded LRU+TTL cache abstraction used
// for both embedding vectors and routed response payloads, so eviction and
// expiry semantics are tested once and reused.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// entry wraps a cached value with its hit counter. Entries are replaced
// wholesale on Set, never partially updated; only the hit counter moves
// after creation. Expiry is owned entirely by the underlying LRU.
type entry[V any] struct {
	value V
	hits  atomic.Int64
}

// Stats summarizes cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache is a bounded, TTL-based cache with LRU eviction and per-entry hit
// counting. Safe for concurrent readers and writers; a lookup racing a
// write sees either the old or the new value. Last write wins for
// concurrent writers to the same key.
type Cache[V any] struct {
	lru    *expirable.LRU[string, *entry[V]]
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache evicting least-recently-used entries beyond maxSize
// and expiring entries after ttl regardless of recency. maxSize <= 0 means
// unbounded; ttl <= 0 means entries never expire.
func New[V any](maxSize int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		lru: expirable.NewLRU[string, *entry[V]](maxSize, nil, ttl),
	}
}

// Get returns the cached value for key. A hit increments the entry's hit
// counter; the value itself is never refreshed by reads.
func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	e.hits.Add(1)
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key, replacing any existing entry wholesale.
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, &entry[V]{value: value})
}

// HitCount returns how many times the entry under key has been read, or 0
// when absent. Peek is used so the count itself does not count as a hit.
func (c *Cache[V]) HitCount(key string) int64 {
	e, ok := c.lru.Peek(key)
	if !ok {
		return 0
	}
	return e.hits.Load()
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Stats returns aggregate hit/miss counters and the current entry count.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.lru.Len(),
	}
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}
