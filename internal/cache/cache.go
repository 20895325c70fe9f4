// Package cache provides a typed expiring in-memory cache, used to memoize views
// derived from a catalog snapshot until the catalog itself changes.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// Cache wraps an untyped expiring store with a single value type per instance.
type Cache[V any] struct {
	cache *gocache.Cache
	log   *zap.SugaredLogger
}

// New creates a named cache. The name only scopes log output.
func New[V any](name string, defaultExpiration, cleanupInterval time.Duration) *Cache[V] {
	return &Cache[V]{
		cache: gocache.New(defaultExpiration, cleanupInterval),
		log:   zap.S().Named("cache").With("cache", name),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	value, found := c.cache.Get(key)
	if !found {
		return zero, false
	}
	v, ok := value.(V)
	if !ok {
		// Only possible if two differently-typed caches share a store; log and
		// treat as a miss.
		c.log.Errorw("wrong type assertion when getting value", "key", key)
		return zero, false
	}
	return v, true
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}

func (c *Cache[V]) Delete(keys ...string) {
	for _, key := range keys {
		c.cache.Delete(key)
	}
}

func (c *Cache[V]) Flush() {
	c.cache.Flush()
}

// ItemCount reports how many entries are stored, expired ones included.
func (c *Cache[V]) ItemCount() int {
	return c.cache.ItemCount()
}

// GetOrCompute returns the cached value for key, computing and storing it on a
// miss. Concurrent callers may compute the same value; last write wins.
func (c *Cache[V]) GetOrCompute(key string, ttl time.Duration, compute func() V) V {
	if value, ok := c.Get(key); ok {
		return value
	}
	value := compute()
	c.Set(key, value, ttl)
	return value
}
