// Package dedup provides a read-through memoization cache for secondary
// lookups shared across many concurrent tasks, with the single-flight
// guarantee: concurrent misses for the same key trigger exactly one
// underlying fetch.
//
// A cache is created per higher-level operation (one search or crawl run) and
// discarded at operation end. It never evicts within that lifetime.
package dedup

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for a key on a cache miss.
type FetchFunc[V any] func(ctx context.Context, key int64) (V, error)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a single-flight read-through cache. Only successful fetches are
// memoized; a failed lookup is retried the next time the key is requested.
type Cache[V any] struct {
	fetch FetchFunc[V]
	group singleflight.Group

	mu      sync.RWMutex
	entries map[int64]entry[V]
}

// New creates a cache around the given fetch function.
func New[V any](fetch FetchFunc[V]) *Cache[V] {
	if fetch == nil {
		panic("dedup: fetch function cannot be nil")
	}
	return &Cache[V]{
		fetch:   fetch,
		entries: make(map[int64]entry[V]),
	}
}

// Get returns the cached value for key, fetching it on first use. When
// several goroutines miss on the same key at once, one fetch runs and all
// callers receive its value or error.
func (c *Cache[V]) Get(ctx context.Context, key int64) (V, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e.value, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(key, 10), func() (any, error) {
		// Re-check under the flight: a previous flight may have stored the
		// value between our miss and this call.
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return e.value, nil
		}

		value, err := c.fetch(ctx, key)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry[V]{value: value, fetchedAt: time.Now()}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Peek returns the cached value without fetching.
func (c *Cache[V]) Peek(key int64) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
