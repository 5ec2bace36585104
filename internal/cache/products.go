package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Read-path cache keys. One key per operation + parameter set.
const (
	opFeatured   = "featured"
	opByCategory = "by_category"
	opByID       = "by_id"
)

// FeaturedKey is the cache key for the featured feed.
func FeaturedKey() string { return opFeatured }

// CategoryKey is the cache key for one category feed.
func CategoryKey(category string) string {
	return fmt.Sprintf("%s:%s", opByCategory, category)
}

// ProductKey is the cache key for one product lookup.
func ProductKey(id string) string {
	return fmt.Sprintf("%s:%s", opByID, id)
}

type entry struct {
	value    interface{}
	storedAt time.Time
}

// ProductCache memoizes product read operations for a fixed TTL. It caches
// whatever the fetch returned, including nil ("not found" is a value, not an
// error); fetch errors must never be stored. All access goes through the
// mutex: the check-fetch-store sequence is not atomic, so concurrent misses
// on the same key may each fetch, but the map itself stays consistent.
type ProductCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewProductCache creates a cache with the given TTL. The clock is injectable
// via WithClock for deterministic tests.
func NewProductCache(ttl time.Duration) *ProductCache {
	return &ProductCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the cache's clock and returns the cache. Test use only.
func (c *ProductCache) WithClock(now func() time.Time) *ProductCache {
	c.now = now
	return c
}

// Get returns the cached value for key and true when a live entry exists.
func (c *ProductCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Put stores value under key, timestamped now.
func (c *ProductCache) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// GetOrFetch returns the cached value for key, or runs fetch, stores its
// result and returns it. A fetch error propagates uncached so the next call
// retries against the source.
func (c *ProductCache) GetOrFetch(key string, fetch func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	c.Put(key, v)
	return v, nil
}

// Invalidate removes one entry.
func (c *ProductCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *ProductCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, live or expired.
func (c *ProductCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// sweep removes entries older than the TTL regardless of access.
func (c *ProductCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
}

// StartSweeper runs a periodic sweep until ctx is done.
func (c *ProductCache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}
