// Package lpcache keeps liquidity position data close at hand: a bounded
// TTL cache in front of a store, in front of the chain.
package lpcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type entry[V any] struct {
	value V
	expAt time.Time
}

// Cache is a thread-safe LRU cache whose entries also expire after a TTL.
// Expiry is checked against the injected clock on read; EvictExpired drops
// expired entries in bulk and is meant to be called by the owner on its own
// schedule. The cache starts no goroutines.
type Cache[V any] struct {
	mu        sync.Mutex
	container *lru.Cache
	ttl       time.Duration
	now       func() time.Time
}

// NewCache creates a cache holding at most capacity entries for ttl each.
// A nil clock means time.Now.
func NewCache[V any](capacity int, ttl time.Duration, now func() time.Time) (*Cache[V], error) {
	container, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{container: container, ttl: ttl, now: now}, nil
}

// Set adds or replaces an item. When the cache is full the least recently
// used item is evicted.
func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.container.Add(key, &entry[V]{value: val, expAt: c.now().Add(c.ttl)})
}

// Get returns a live item and marks it recently used. An expired item is
// removed and reported as missing.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	v, ok := c.container.Get(key)
	if !ok {
		return zero, false
	}
	e := v.(*entry[V])
	if !c.now().Before(e.expAt) {
		c.container.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Delete removes an item.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.container.Remove(key)
}

// Len returns the number of stored items, expired ones included until they
// are evicted.
func (c *Cache[V]) Len() int {
	return c.container.Len()
}

// EvictExpired removes every expired item and returns how many were removed.
func (c *Cache[V]) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, k := range c.container.Keys() {
		v, ok := c.container.Peek(k)
		if !ok {
			continue
		}
		if !now.Before(v.(*entry[V]).expAt) {
			c.container.Remove(k)
			removed++
		}
	}
	return removed
}
