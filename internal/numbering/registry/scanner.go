package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/metrics"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/tracing"
)

// Scanner lists every domain store and folds the results into a Registry.
type Scanner struct {
	stores []domain.Store
	byName map[string]domain.Store
	// prefixes holds every configured series prefix plus the unprefixed one.
	prefixes []string
	tracer   trace.Tracer
	metrics  *metrics.Metrics
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithTracer sets the tracer used for scan spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scanner) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// NewScanner creates a scanner over stores, which are scanned in the given order.
// Domain names must be unique.
func NewScanner(stores []domain.Store, opts ...Option) (*Scanner, error) {
	if len(stores) == 0 {
		return nil, errors.New("scanner needs at least one domain store")
	}
	s := &Scanner{
		stores:   append([]domain.Store(nil), stores...),
		byName:   make(map[string]domain.Store, len(stores)),
		prefixes: []string{""},
		tracer:   tracing.Noop(),
	}
	for _, st := range stores {
		desc := st.Descriptor()
		if _, dup := s.byName[desc.Name]; dup {
			return nil, fmt.Errorf("duplicate domain %q", desc.Name)
		}
		s.byName[desc.Name] = st
		if !slices.Contains(s.prefixes, desc.Prefix) {
			s.prefixes = append(s.prefixes, desc.Prefix)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Stores returns the stores in scan order.
func (s *Scanner) Stores() []domain.Store {
	return append([]domain.Store(nil), s.stores...)
}

// Store returns the store of the named domain.
func (s *Scanner) Store(name string) (domain.Store, error) {
	st, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDomain, name)
	}
	return st, nil
}

type listing struct {
	records []domain.NumberRecord
	err     error
}

// Scan reads every domain concurrently and returns the registry, folded in
// descriptor order then row order. An unreachable domain is recorded and
// treated as empty. When year is set only numbers of that year are kept.
// If no domain could be read the (empty) registry is returned together with
// domain.ErrNoReachableDomain.
func (s *Scanner) Scan(ctx context.Context, year *int) (reg *Registry, err error) {
	attrs := []attribute.KeyValue{}
	if year != nil {
		attrs = append(attrs, attribute.Int(tracing.AttrYear, *year))
	}
	ctx, span := tracing.Start(ctx, s.tracer, tracing.SpanScan, attrs...)
	defer func() { tracing.End(span, err) }()
	start := time.Now()

	results := make([]listing, len(s.stores))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range s.stores {
		g.Go(func() error {
			records, err := s.list(gctx, st)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = listing{records: records, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reg = New()
	reg.year = year
	for i, st := range s.stores {
		desc := st.Descriptor()
		res := results[i]
		if res.err != nil {
			log.WarnErr(log.CatScan, "Domain unavailable, treated as empty", res.err, "domain", desc.Name)
			span.AddEvent(tracing.EventStoreUnavailable, trace.WithAttributes(attribute.String(tracing.AttrDomain, desc.Name)))
			s.metrics.IncStoreUnavailable(desc.Name)
			reg.MarkUnavailable(desc.Name)
			continue
		}
		for _, rec := range res.records {
			if year != nil && !s.inYear(rec.Number, *year) {
				continue
			}
			reg.Add(rec)
		}
	}

	s.metrics.ObserveScan(time.Since(start))
	span.SetAttributes(
		attribute.Int(tracing.AttrRecords, len(reg.records)),
		attribute.Int(tracing.AttrUnavailable, len(reg.unavailable)),
	)
	log.Debug(log.CatScan, "Scan complete",
		"domains", len(s.stores), "records", len(reg.records), "unavailable", len(reg.unavailable))

	if len(reg.unavailable) == len(s.stores) {
		return reg, domain.ErrNoReachableDomain
	}
	return reg, nil
}

// list wraps any non-context failure as StoreUnavailable.
func (s *Scanner) list(ctx context.Context, st domain.Store) ([]domain.NumberRecord, error) {
	name := st.Descriptor().Name
	ctx, span := tracing.Start(ctx, s.tracer, tracing.SpanListStore, attribute.String(tracing.AttrDomain, name))
	records, err := st.ListNumbers(ctx)
	if err != nil && !errors.Is(err, domain.ErrStoreUnavailable) && ctx.Err() == nil {
		err = &domain.StoreUnavailableError{Domain: name, Err: err}
	}
	span.SetAttributes(attribute.Int(tracing.AttrRecords, len(records)))
	tracing.End(span, err)
	return records, err
}

// inYear keeps numbers of the year in any configured series, whichever
// domain holds them, so malformed suffixes of that year are still registered.
func (s *Scanner) inYear(number string, year int) bool {
	for _, p := range s.prefixes {
		if strings.HasPrefix(number, domain.YearPrefix(p, year)) {
			return true
		}
	}
	return false
}
