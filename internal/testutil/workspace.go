// Package testutil provides test utilities for domain database setup.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quoteworks/docnum/internal/config"
	"github.com/quoteworks/docnum/internal/infrastructure/sqlite"
	"github.com/quoteworks/docnum/internal/numbering/domain"
)

// Workspace is a temporary data directory holding the default domains,
// provisioned with their built-in schemas.
type Workspace struct {
	t      *testing.T
	Config config.Config
	Pool   *sqlite.HandlePool
	stores []*sqlite.DomainStore
}

// NewWorkspace provisions the default domains under a fresh temp directory.
// Handles are closed when the test ends.
func NewWorkspace(t *testing.T) *Workspace {
	t.Helper()
	return NewWorkspaceWithConfig(t, config.Defaults())
}

// NewWorkspaceWithConfig provisions the domains of cfg with its data directory
// replaced by a fresh temp directory.
func NewWorkspaceWithConfig(t *testing.T, cfg config.Config) *Workspace {
	t.Helper()
	cfg.DataDir = t.TempDir()

	w := &Workspace{t: t, Config: cfg, Pool: sqlite.NewHandlePool(0)}
	t.Cleanup(func() { _ = w.Pool.Close() })

	for _, desc := range cfg.Descriptors() {
		s, err := sqlite.NewDomainStore(desc, w.Pool)
		require.NoError(t, err, "creating store %s", desc.Name)
		if desc.Schema != "" {
			require.NoError(t, s.Provision(context.Background()), "provisioning %s", desc.Name)
		}
		w.stores = append(w.stores, s)
	}
	return w
}

// Store returns the named domain store.
func (w *Workspace) Store(name string) *sqlite.DomainStore {
	w.t.Helper()
	for _, s := range w.stores {
		if s.Descriptor().Name == name {
			return s
		}
	}
	w.t.Fatalf("testutil: unknown domain %q", name)
	return nil
}

// Stores returns every domain store in configuration order.
func (w *Workspace) Stores() []domain.Store {
	out := make([]domain.Store, len(w.stores))
	for i, s := range w.stores {
		out[i] = s
	}
	return out
}

// Numbers returns the numbers of a domain in id order.
func (w *Workspace) Numbers(name string) []string {
	w.t.Helper()
	records, err := w.Store(name).ListNumbers(context.Background())
	require.NoError(w.t, err)
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Number
	}
	return out
}
