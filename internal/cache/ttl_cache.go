// Package cache holds small expiring caches for values that are expensive
// to compute but fine to serve slightly stale, such as database statistics
// reported by the health endpoint.
package cache

import (
	"sync"
	"time"
)

// TTLCache is a thread-safe map whose entries all expire together, ttl after
// the last write. A zero or negative ttl disables caching.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	data    map[K]V
	written time.Time
	ttl     time.Duration
	now     func() time.Time
}

// New creates an empty, expired cache.
func New[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{data: make(map[K]V), ttl: ttl, now: time.Now}
}

// Get returns the value of key while the cache is fresh.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

// Set stores value under key and restarts the expiry clock. A write to an
// expired cache drops the stale entries first.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

// Load returns the cached value of key, or calls fill and caches its result.
// fill runs under the cache lock, so concurrent callers share one fill.
// Errors are returned and not cached.
func (c *TTLCache[K, V]) Load(key K, fill func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.getLocked(key); ok {
		return v, nil
	}
	v, err := fill()
	if err != nil {
		return v, err
	}
	c.setLocked(key, v)
	return v, nil
}

// Invalidate drops every entry.
func (c *TTLCache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.data)
	c.written = time.Time{}
}

// Fresh reports whether the cache holds unexpired entries.
func (c *TTLCache[K, V]) Fresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.expiredLocked()
}

// Len returns the number of entries, including expired ones not yet dropped.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *TTLCache[K, V]) getLocked(key K) (V, bool) {
	if c.expiredLocked() {
		var zero V
		return zero, false
	}
	v, ok := c.data[key]
	return v, ok
}

func (c *TTLCache[K, V]) setLocked(key K, value V) {
	if c.ttl <= 0 {
		return
	}
	if c.expiredLocked() {
		clear(c.data)
	}
	c.data[key] = value
	c.written = c.now()
}

func (c *TTLCache[K, V]) expiredLocked() bool {
	return c.written.IsZero() || c.now().Sub(c.written) >= c.ttl
}
