package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Source values returned by GetOrFetch.
const (
	SourceCache  = "cache"
	SourceLedger = "ledger"
)

// Entry is a cached value and when it was fetched.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
}

type item[V any] struct {
	entry     Entry[V]
	expiresAt time.Time
}

// Cache is a TTL cache that coalesces concurrent misses per key.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
	ttl   time.Duration
	group singleflight.Group
	gen   map[string]uint64
}

func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{items: make(map[string]item[V]), gen: make(map[string]uint64), ttl: ttl}
}

// GetOrFetch returns a fresh cached entry or runs fetch once for all
// concurrent callers of the same key. Errors are never cached.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (V, error)) (Entry[V], string, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	if ok && time.Now().Before(it.expiresAt) {
		c.mu.RUnlock()
		return it.entry, SourceCache, nil
	}
	c.mu.RUnlock()

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		gen := c.gen[key]
		c.mu.RUnlock()

		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		e := Entry[V]{Value: v, FetchedAt: time.Now().UTC()}
		c.mu.Lock()
		// An Invalidate during the fetch means the value may already be stale.
		if c.gen[key] == gen {
			c.items[key] = item[V]{entry: e, expiresAt: time.Now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return Entry[V]{}, "", err
	}
	return res.(Entry[V]), SourceLedger, nil
}

// Invalidate drops key so the next read fetches again.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.gen[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}

// Len returns the number of items in the cache (for tests).
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
