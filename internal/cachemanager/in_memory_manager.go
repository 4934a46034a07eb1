package cachemanager

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/quoteworks/docnum/internal/log"
)

const DefaultExpiration = 10 * time.Minute
const DefaultCleanupInterval = 30 * time.Minute

// Option configures an InMemoryCacheManager.
type Option[K ~string, V any] func(*InMemoryCacheManager[K, V])

// WithEvictionHandler registers fn to run whenever an item leaves the cache,
// whether it expired, was deleted, or was flushed.
func WithEvictionHandler[K ~string, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *InMemoryCacheManager[K, V]) {
		c.onEvicted = fn
	}
}

// NewInMemoryCacheManager initializes the in-memory cache with a default cleanup interval
func NewInMemoryCacheManager[K ~string, V any](useCase string, defaultExpiration, cleanupInterval time.Duration, opts ...Option[K, V]) *InMemoryCacheManager[K, V] {
	c := &InMemoryCacheManager[K, V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanupInterval),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.onEvicted != nil {
		c.cache.OnEvicted(func(key string, value any) {
			v, ok := value.(V)
			if !ok {
				log.Error(log.CatCache, "wrong type assertion on eviction", "use_case", c.useCase, "key", key)
				return
			}
			log.Debug(log.CatCache, "cache eviction", "use_case", c.useCase, "key", key)
			c.onEvicted(K(key), v)
		})
	}
	return c
}

// InMemoryCacheManager is the concrete implementation of the CacheManager interface
type InMemoryCacheManager[K ~string, V any] struct {
	useCase   string
	cache     *gocache.Cache
	onEvicted func(key K, value V)
}

// Get retrieves an item from the cache by its key
func (c *InMemoryCacheManager[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zeroValue V

	value, found := c.cache.Get(string(key))
	if !found {
		return zeroValue, false
	}

	// Type assertion check to ensure the type is correct
	v, ok := value.(V)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting value", "use_case", c.useCase, "key", key)

		return zeroValue, false
	}

	log.Debug(log.CatCache, "cache hit", "use_case", c.useCase, "key", key)

	return v, true
}

// GetWithRefresh retrieves an item from the cache if one is found we extend the ttl
// by putting the item back in the cache
func (c *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	value, found := c.Get(ctx, key)
	if !found {
		return value, found
	}

	// go-cache's Set replaces the item without firing OnEvicted.
	c.Set(ctx, key, value, ttl)

	return value, found
}

// Set sets a value in the cache with a key and TTL
func (c *InMemoryCacheManager[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	c.cache.Set(string(key), value, ttl)
}

// Delete removes values from the cache, running the eviction handler for each.
func (c *InMemoryCacheManager[K, V]) Delete(ctx context.Context, keys ...K) error {
	for _, key := range keys {
		c.cache.Delete(string(key))
	}

	return nil
}

// Flush empties the cache. Unlike go-cache's own Flush, items are deleted one
// by one so the eviction handler sees every value.
func (c *InMemoryCacheManager[K, V]) Flush(ctx context.Context) error {
	for key := range c.cache.Items() {
		c.cache.Delete(key)
	}
	// Items skips expired entries the janitor has not swept yet.
	c.cache.DeleteExpired()

	return nil
}

// Len returns the number of items currently cached, expired ones included.
func (c *InMemoryCacheManager[K, V]) Len() int {
	return c.cache.ItemCount()
}
