package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/quoteworks/docnum/internal/config"
	"github.com/quoteworks/docnum/internal/infrastructure/sqlite"
	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/metrics"
	"github.com/quoteworks/docnum/internal/numbering/allocator"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
	"github.com/quoteworks/docnum/internal/numbering/resolver"
	"github.com/quoteworks/docnum/internal/tracing"
)

// env holds everything a command needs to reach the domains.
type env struct {
	cfg     config.Config
	pool    *sqlite.HandlePool
	stores  []*sqlite.DomainStore
	scanner *registry.Scanner
	metrics *metrics.Metrics
	tracing *tracing.Provider
	ledger  *sqlite.DB
}

func newEnv(c config.Config) (*env, error) {
	if err := config.Validate(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tp, err := tracing.NewProvider(c.TracingConfig())
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	e := &env{
		cfg:     c,
		pool:    sqlite.NewHandlePool(c.Store.IdleTimeout),
		metrics: metrics.New(),
		tracing: tp,
	}

	stores := make([]domain.Store, 0, len(c.Domains))
	for _, desc := range c.Descriptors() {
		s, err := sqlite.NewDomainStore(desc, e.pool)
		if err != nil {
			e.close()
			return nil, err
		}
		e.stores = append(e.stores, s)
		stores = append(stores, s)
	}

	e.scanner, err = registry.NewScanner(stores,
		registry.WithTracer(tp.Tracer()),
		registry.WithMetrics(e.metrics),
	)
	if err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

// facade returns the allocation facade over every configured domain.
func (e *env) facade() *allocator.Facade {
	return allocator.NewFacade(e.scanner,
		allocator.WithTracer(e.tracing.Tracer()),
		allocator.WithMetrics(e.metrics),
		allocator.WithIssueAttempts(e.cfg.Allocate.IssueAttempts),
	)
}

// openLedger opens the reassignment ledger, or returns nil when disabled.
func (e *env) openLedger() (*sqlite.LedgerRepository, error) {
	if e.ledger != nil {
		return e.ledger.Ledger(), nil
	}
	path := e.cfg.ResolvePath(e.cfg.Resolve.LedgerPath)
	if path == "" {
		return nil, nil
	}
	db, err := sqlite.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	e.ledger = db
	return db.Ledger(), nil
}

// resolver builds a resolver wired to the ledger and backup directory.
func (e *env) resolver(decider resolver.Decider, backup bool) (*resolver.Resolver, error) {
	opts := []resolver.Option{
		resolver.WithPriority(e.cfg.Priority),
		resolver.WithTracer(e.tracing.Tracer()),
		resolver.WithMetrics(e.metrics),
	}
	if decider != nil {
		opts = append(opts, resolver.WithDecider(decider))
	}
	if backup {
		opts = append(opts, resolver.WithBackupDir(e.cfg.ResolvePath(e.cfg.Resolve.BackupDir)))
	}
	ledger, err := e.openLedger()
	if err != nil {
		return nil, err
	}
	if ledger != nil {
		opts = append(opts, resolver.WithJournal(ledger))
	}
	return resolver.New(e.scanner, opts...), nil
}

// paths returns the database file of every domain.
func (e *env) paths() []string {
	out := make([]string, 0, len(e.stores))
	for _, s := range e.stores {
		out = append(out, s.Descriptor().StorePath)
	}
	return out
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.tracing != nil {
		if err := e.tracing.Shutdown(ctx); err != nil {
			log.WarnErr(log.CatTracing, "Tracer shutdown failed", err)
		}
	}
	if e.ledger != nil {
		_ = e.ledger.Close()
	}
	if e.pool != nil {
		_ = e.pool.Close()
	}
	if err := e.metrics.WriteTextfile(e.cfg.Metrics.TextfilePath); err != nil {
		log.WarnErr(log.CatMetrics, "Writing metrics failed", err)
	}
}
