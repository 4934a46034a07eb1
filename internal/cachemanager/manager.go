// Package cachemanager provides typed, expiring caches used to keep
// per-file resources (such as open SQLite handles) alive between calls.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is an expiring keyed store.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}
