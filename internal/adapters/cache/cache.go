package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed TTL cache keyed by string.
type Cache[V any] struct {
	c   *gocache.Cache
	ttl time.Duration
}

// NewCache creates a cache whose entries expire after ttl. A non-positive ttl
// keeps entries until they are overwritten.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := ttl * 2
	if cleanup <= 0 || cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &Cache[V]{
		c:   gocache.New(ttl, cleanup),
		ttl: ttl,
	}
}

func (c *Cache[V]) Get(_ context.Context, k string) (V, bool) {
	var zero V
	v, ok := c.c.Get(k)
	if !ok {
		return zero, false
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

func (c *Cache[V]) Set(_ context.Context, k string, v V) {
	c.c.Set(k, v, gocache.DefaultExpiration)
}

func (c *Cache[V]) GetBatch(ctx context.Context, keys []string) map[string]V {
	res := make(map[string]V, len(keys))
	for _, k := range keys {
		if v, ok := c.Get(ctx, k); ok {
			res[k] = v
		}
	}
	return res
}

func (c *Cache[V]) SetBatch(_ context.Context, items map[string]V) {
	for k, v := range items {
		c.c.Set(k, v, gocache.DefaultExpiration)
	}
}

func (c *Cache[V]) Delete(_ context.Context, k string) {
	c.c.Delete(k)
}

func (c *Cache[V]) Len() int {
	return c.c.ItemCount()
}
