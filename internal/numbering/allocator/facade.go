package allocator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/metrics"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
	"github.com/quoteworks/docnum/internal/tracing"
)

// DefaultIssueAttempts bounds how often Issue re-allocates after a duplicate.
const DefaultIssueAttempts = 3

// Allocation paths.
const (
	PathGlobal  = "global"
	PathLocal   = "local"
	PathDefault = "default"
)

// Allocation is a number handed out by the facade.
type Allocation struct {
	Number string `json:"number" yaml:"number"`
	Domain string `json:"domain" yaml:"domain"`
	Year   int    `json:"year" yaml:"year"`

	// Provisional is set when some domain could not be consulted. The number
	// must be re-checked by the next resolution pass.
	Provisional bool `json:"provisional" yaml:"provisional"`

	// Global is set when the number was computed over every reachable domain.
	Global bool `json:"global" yaml:"global"`

	// Path is the allocator that produced the number.
	Path string `json:"path" yaml:"path"`

	// Unavailable lists the domains that could not be read.
	Unavailable []string `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// Facade picks the allocator for each call with one capability check: can the
// scan see at least one domain. It never fails for a known domain.
type Facade struct {
	scanner  *registry.Scanner
	now      func() time.Time
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	attempts int
}

// Option configures a Facade.
type Option func(*Facade)

// WithClock sets the clock used for the default year.
func WithClock(now func() time.Time) Option {
	return func(f *Facade) {
		if now != nil {
			f.now = now
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(f *Facade) {
		if t != nil {
			f.tracer = t
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Facade) { f.metrics = m }
}

// WithIssueAttempts sets how many numbers Issue tries before giving up.
func WithIssueAttempts(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// NewFacade creates a facade over scanner.
func NewFacade(scanner *registry.Scanner, opts ...Option) *Facade {
	f := &Facade{
		scanner:  scanner,
		now:      time.Now,
		tracer:   tracing.Noop(),
		attempts: DefaultIssueAttempts,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Allocate returns the next number for domainName. A nil year means the
// current calendar year. The only error is an unknown domain or a cancelled
// context; every other failure degrades to a provisional number.
func (f *Facade) Allocate(ctx context.Context, domainName string, year *int) (alloc Allocation, err error) {
	store, err := f.scanner.Store(domainName)
	if err != nil {
		return Allocation{}, err
	}
	desc := store.Descriptor()
	y := f.now().Year()
	if year != nil {
		y = *year
	}

	ctx, span := tracing.Start(ctx, f.tracer, tracing.SpanAllocate,
		attribute.String(tracing.AttrDomain, domainName),
		attribute.Int(tracing.AttrYear, y),
	)
	defer func() {
		span.SetAttributes(
			attribute.String(tracing.AttrNumber, alloc.Number),
			attribute.Bool(tracing.AttrProvisional, alloc.Provisional),
			attribute.Bool(tracing.AttrGlobal, alloc.Global),
		)
		tracing.End(span, err)
	}()

	alloc = Allocation{Domain: domainName, Year: y}

	number, reg, scanErr := Global(ctx, f.scanner, desc, y)
	switch {
	case scanErr == nil:
		alloc.Number = number
		alloc.Global = true
		alloc.Path = PathGlobal
		alloc.Unavailable = reg.Unavailable()
		alloc.Provisional = !reg.Complete()
	case ctx.Err() != nil:
		return Allocation{}, ctx.Err()
	default:
		log.WarnErr(log.CatAlloc, "Global allocation unavailable, using domain-local view", scanErr, "domain", domainName)
		span.AddEvent(tracing.EventFallback, trace.WithAttributes(attribute.String("path", PathLocal)))
		if reg != nil {
			alloc.Unavailable = reg.Unavailable()
		}
		alloc.Provisional = true
		number, localErr := Local(ctx, store, y)
		if localErr == nil {
			alloc.Number = number
			alloc.Path = PathLocal
			break
		}
		if ctx.Err() != nil {
			return Allocation{}, ctx.Err()
		}
		log.WarnErr(log.CatAlloc, "Domain store unreachable, using first number of the year", localErr, "domain", domainName)
		alloc.Number = domain.FormatNumber(desc.Prefix, y, 1)
		alloc.Path = PathDefault
	}

	f.metrics.IncAllocation(domainName, alloc.Path, alloc.Provisional)
	log.Info(log.CatAlloc, "Allocated number",
		"domain", domainName, "number", alloc.Number, "path", alloc.Path, "provisional", alloc.Provisional)
	return alloc, nil
}

// PersistFunc writes a freshly allocated number. It returns an error matching
// domain.ErrConstraintViolation when the number was taken in the meantime.
type PersistFunc func(ctx context.Context, number string) error

// Issue allocates a number and persists it with persist, allocating again when
// the write collides. The returned allocation is the one that was persisted.
func (f *Facade) Issue(ctx context.Context, domainName string, year *int, persist PersistFunc) (alloc Allocation, err error) {
	ctx, span := tracing.Start(ctx, f.tracer, tracing.SpanIssue, attribute.String(tracing.AttrDomain, domainName))
	defer func() { tracing.End(span, err) }()

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		alloc, err = f.Allocate(ctx, domainName, year)
		if err != nil {
			return Allocation{}, err
		}
		lastErr = persist(ctx, alloc.Number)
		if lastErr == nil {
			return alloc, nil
		}
		if !errors.Is(lastErr, domain.ErrConstraintViolation) {
			return Allocation{}, fmt.Errorf("persisting %s: %w", alloc.Number, lastErr)
		}
		f.metrics.IncIssueRetry(domainName)
		span.AddEvent(tracing.EventRetry, trace.WithAttributes(
			attribute.String(tracing.AttrNumber, alloc.Number),
			attribute.Int("attempt", attempt),
		))
		log.Warn(log.CatAlloc, "Number taken before insert, allocating again",
			"domain", domainName, "number", alloc.Number, "attempt", attempt)
	}
	return Allocation{}, fmt.Errorf("issuing number for %s after %d attempts: %w", domainName, f.attempts, lastErr)
}

// IssueRecord allocates a number and inserts rec with it into the domain's store.
func (f *Facade) IssueRecord(ctx context.Context, domainName string, year *int, rec domain.NewRecord) (Allocation, int64, error) {
	store, err := f.scanner.Store(domainName)
	if err != nil {
		return Allocation{}, 0, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = f.now()
	}
	var id int64
	alloc, err := f.Issue(ctx, domainName, year, func(ctx context.Context, number string) error {
		rec.Number = number
		var insertErr error
		id, insertErr = store.Insert(ctx, rec)
		return insertErr
	})
	if err != nil {
		return Allocation{}, 0, err
	}
	return alloc, id, nil
}
