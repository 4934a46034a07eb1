package cachemanager

import (
	"context"
	"sync"
	"time"
)

// ReadThroughCache loads values on a miss and stores them in the wrapped cache.
// Loads for the same cache are serialized so a missing key is loaded once.
type ReadThroughCache[K ~string, V any] struct {
	mu              sync.Mutex
	cache           CacheManager[K, V]
	fn              func(ctx context.Context, key K) (V, error)
	shouldSkipCache bool
}

func NewReadThroughCache[K ~string, V any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, key K) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V] {
	return &ReadThroughCache[K, V]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache,
	}
}

func (r *ReadThroughCache[K, V]) Get(ctx context.Context, key K, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	return r.load(ctx, key, ttl)
}

func (r *ReadThroughCache[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if value, ok := r.cache.GetWithRefresh(ctx, key, ttl); ok {
		return value, nil
	}

	return r.load(ctx, key, ttl)
}

func (r *ReadThroughCache[K, V]) load(ctx context.Context, key K, ttl time.Duration) (V, error) {
	value, err := r.fn(ctx, key)
	if err != nil {
		return value, err
	}

	// An expired item not yet swept by the janitor is still stored; delete it
	// so the eviction handler sees it before Set overwrites it.
	_ = r.cache.Delete(ctx, key)
	r.cache.Set(ctx, key, value, ttl)

	return value, nil
}
