// Package resolver repairs numbers held by more than one record.
//
// A pass scans every domain, detects conflicts, keeps one occurrence of each
// conflicting number and renumbers the others from a counter shared by the
// whole pass, then re-scans to verify that the repaired numbers are unique.
// Passes are operator-triggered; nothing in the allocation path calls them.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/quoteworks/docnum/internal/metrics"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
	"github.com/quoteworks/docnum/internal/tracing"
)

// Mode selects how a pass applies its decisions.
type Mode string

const (
	// ModeInteractive asks a Decider before applying each conflict.
	ModeInteractive Mode = "interactive"
	// ModeAutomatic applies every conflict.
	ModeAutomatic Mode = "automatic"
	// ModeDryRun computes the reassignments without writing.
	ModeDryRun Mode = "dry-run"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeInteractive, ModeAutomatic, ModeDryRun:
		return Mode(s), nil
	case "dryrun", "dry_run":
		return ModeDryRun, nil
	}
	return "", fmt.Errorf("unknown resolution mode %q (want interactive, automatic or dry-run)", s)
}

// DefaultPriority ranks the historical primary domain first when timestamps
// cannot pick a keeper.
var DefaultPriority = []string{"heritage"}

// Journal records applied reassignments durably.
type Journal interface {
	Record(ctx context.Context, passID, mode string, at time.Time, items []domain.Reassignment) error
}

// Backuper is implemented by stores able to snapshot themselves before a write.
type Backuper interface {
	Backup(ctx context.Context, dest string) error
}

// Resolver runs conflict resolution passes over the domains of a scanner.
type Resolver struct {
	scanner   *registry.Scanner
	priority  []string
	decider   Decider
	journal   Journal
	backupDir string
	now       func() time.Time
	newID     func() string
	tracer    trace.Tracer
	metrics   *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPriority sets the domain order used to pick a keeper when timestamps
// are missing or tied. Earlier names win.
func WithPriority(domains []string) Option {
	return func(r *Resolver) { r.priority = append([]string(nil), domains...) }
}

// WithDecider sets the decider consulted in interactive mode.
func WithDecider(d Decider) Option {
	return func(r *Resolver) { r.decider = d }
}

// WithJournal records every applied reassignment.
func WithJournal(j Journal) Option {
	return func(r *Resolver) { r.journal = j }
}

// WithBackupDir snapshots every domain involved in a writing pass under dir/<pass id>/.
func WithBackupDir(dir string) Option {
	return func(r *Resolver) { r.backupDir = dir }
}

// WithClock sets the clock used for default years and ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator sets the pass id generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Resolver) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a resolver over the domains of scanner.
func New(scanner *registry.Scanner, opts ...Option) *Resolver {
	r := &Resolver{
		scanner:  scanner,
		priority: append([]string(nil), DefaultPriority...),
		now:      time.Now,
		newID:    uuid.NewString,
		tracer:   tracing.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
