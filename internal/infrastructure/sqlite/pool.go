package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quoteworks/docnum/internal/cachemanager"
	"github.com/quoteworks/docnum/internal/log"
)

// DefaultIdleTimeout is how long an unused partition handle stays open.
const DefaultIdleTimeout = 5 * time.Minute

// HandlePool keeps one *sql.DB per partition file and closes handles that
// stay idle longer than the configured timeout.
type HandlePool struct {
	cache *cachemanager.InMemoryCacheManager[string, *sql.DB]
	rtc   *cachemanager.ReadThroughCache[string, *sql.DB]
	idle  time.Duration
}

// NewHandlePool creates a pool. A non-positive idle timeout uses DefaultIdleTimeout.
func NewHandlePool(idle time.Duration) *HandlePool {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	cache := cachemanager.NewInMemoryCacheManager[string, *sql.DB](
		"domain-handles", idle, idle,
		cachemanager.WithEvictionHandler[string, *sql.DB](func(path string, conn *sql.DB) {
			if err := conn.Close(); err != nil {
				log.ErrorErr(log.CatStore, "Failed to close partition handle", err, "path", path)
			}
		}),
	)
	return &HandlePool{
		cache: cache,
		rtc:   cachemanager.NewReadThroughCache[string, *sql.DB](cache, openPartition, false),
		idle:  idle,
	}
}

// Acquire returns the handle for path, opening it on first use.
// The file must already exist.
func (p *HandlePool) Acquire(ctx context.Context, path string) (*sql.DB, error) {
	return p.rtc.GetWithRefresh(ctx, path, p.idle)
}

// Release drops and closes the handle for path, if any. Used after a handle
// reported an error so the next Acquire reopens the file.
func (p *HandlePool) Release(ctx context.Context, path string) {
	_ = p.cache.Delete(ctx, path)
}

// Close closes every pooled handle.
func (p *HandlePool) Close() error {
	return p.cache.Flush(context.Background())
}

func openPartition(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", domainDSN(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	log.Debug(log.CatStore, "Opened partition", "path", path)
	return conn, nil
}
