package allocator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/quoteworks/docnum/internal/metrics"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/memstore"
	"github.com/quoteworks/docnum/internal/numbering/registry"
)

var fixedClock = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }

func intPtr(v int) *int { return &v }

func seed(numbers ...string) []memstore.Seed {
	out := make([]memstore.Seed, len(numbers))
	for i, n := range numbers {
		out[i] = memstore.Seed{Number: n}
	}
	return out
}

type fixture struct {
	heritage *memstore.Store
	multi    *memstore.Store
	po       *memstore.Store
	scanner  *registry.Scanner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		heritage: memstore.New(domain.DomainDescriptor{Name: "heritage"}),
		multi:    memstore.New(domain.DomainDescriptor{Name: "multi"}),
		po:       memstore.New(domain.DomainDescriptor{Name: "purchase_order", Prefix: "BC-"}),
	}
	s, err := registry.NewScanner([]domain.Store{fx.heritage, fx.multi, fx.po})
	require.NoError(t, err)
	fx.scanner = s
	return fx
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		numbers []string
		prefix  string
		want    string
	}{
		{"empty", nil, "", "2024-001"},
		{"max plus one", []string{"2024-001", "2024-007"}, "", "2024-008"},
		{"other year ignored", []string{"2023-050"}, "", "2024-001"},
		{"malformed ignored", []string{"2024-abc", "2024-002"}, "", "2024-003"},
		{"grows past 999", []string{"2024-999"}, "", "2024-1000"},
		{"prefixed series", []string{"BC-2024-004", "2024-010"}, "BC-", "BC-2024-005"},
		{"skips exact string present", []string{"2024-002", "2024-003"}, "", "2024-004"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.New()
			for _, n := range tt.numbers {
				reg.Add(domain.NumberRecord{Number: n})
			}
			require.Equal(t, tt.want, Next(reg, tt.prefix, 2024))
		})
	}
}

func TestAllocate_GlobalAcrossDomains(t *testing.T) {
	fx := newFixture(t)
	fx.heritage.WithRecords(seed("2024-001", "2024-002")...)
	fx.multi.WithRecords(seed("2024-005")...)

	f := NewFacade(fx.scanner, WithClock(fixedClock))
	alloc, err := f.Allocate(context.Background(), "heritage", nil)
	require.NoError(t, err)
	require.Equal(t, "2024-006", alloc.Number)
	require.Equal(t, 2024, alloc.Year)
	require.True(t, alloc.Global)
	require.False(t, alloc.Provisional)
	require.Equal(t, PathGlobal, alloc.Path)
}

func TestAllocate_ExplicitYear(t *testing.T) {
	fx := newFixture(t)
	fx.multi.WithRecords(seed("2024-005", "2025-001")...)

	alloc, err := NewFacade(fx.scanner, WithClock(fixedClock)).Allocate(context.Background(), "multi", intPtr(2025))
	require.NoError(t, err)
	require.Equal(t, "2025-002", alloc.Number)
}

func TestAllocate_PrefixedDomain(t *testing.T) {
	fx := newFixture(t)
	fx.heritage.WithRecords(seed("2024-009")...)
	fx.po.WithRecords(seed("BC-2024-002")...)

	alloc, err := NewFacade(fx.scanner, WithClock(fixedClock)).Allocate(context.Background(), "purchase_order", nil)
	require.NoError(t, err)
	require.Equal(t, "BC-2024-003", alloc.Number)
}

func TestAllocate_SeesNumbersFiledInAnotherDomain(t *testing.T) {
	fx := newFixture(t)
	fx.heritage.WithRecords(seed("BC-2024-001")...)

	alloc, err := NewFacade(fx.scanner, WithClock(fixedClock)).Allocate(context.Background(), "purchase_order", intPtr(2024))
	require.NoError(t, err)
	require.Equal(t, "BC-2024-002", alloc.Number)
}

func TestAllocate_MalformedNumberDoesNotCrash(t *testing.T) {
	fx := newFixture(t)
	fx.heritage.WithRecords(seed("2024-abc", "2024-001")...)

	alloc, err := NewFacade(fx.scanner, WithClock(fixedClock)).Allocate(context.Background(), "heritage", nil)
	require.NoError(t, err)
	require.Equal(t, "2024-002", alloc.Number)
}

func TestAllocate_PartialOutageIsProvisional(t *testing.T) {
	fx := newFixture(t)
	fx.heritage.WithRecords(seed("2024-004")...)
	fx.multi.WithRecords(seed("2024-010")...)
	fx.multi.SetUnavailable(true)

	m := metrics.New()
	alloc, err := NewFacade(fx.scanner, WithClock(fixedClock), WithMetrics(m)).Allocate(context.Background(), "heritage", nil)
	require.NoError(t, err)
	require.Equal(t, "2024-005", alloc.Number)
	require.True(t, alloc.Global)
	require.True(t, alloc.Provisional)
	require.Equal(t, []string{"multi"}, alloc.Unavailable)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Provisional.WithLabelValues("heritage")))
}

// flaky fails its first ListNumbers call then recovers.
type flaky struct {
	*memstore.Store
	calls int
}

func (f *flaky) ListNumbers(ctx context.Context) ([]domain.NumberRecord, error) {
	f.calls++
	if f.calls == 1 {
		return nil, &domain.StoreUnavailableError{Domain: f.Descriptor().Name, Err: errors.New("locked")}
	}
	return f.Store.ListNumbers(ctx)
}

func TestAllocate_FallsBackToLocal(t *testing.T) {
	only := &flaky{Store: memstore.New(domain.DomainDescriptor{Name: "heritage"}).WithRecords(seed("2024-003")...)}
	s, err := registry.NewScanner([]domain.Store{only})
	require.NoError(t, err)

	alloc, err := NewFacade(s, WithClock(fixedClock)).Allocate(context.Background(), "heritage", nil)
	require.NoError(t, err)
	require.Equal(t, "2024-004", alloc.Number)
	require.Equal(t, PathLocal, alloc.Path)
	require.False(t, alloc.Global)
	require.True(t, alloc.Provisional)
}

func TestAllocate_NothingReachableReturnsFirstNumber(t *testing.T) {
	fx := newFixture(t)
	fx.heritage.SetUnavailable(true)
	fx.multi.SetUnavailable(true)
	fx.po.SetUnavailable(true)

	f := NewFacade(fx.scanner, WithClock(fixedClock))

	alloc, err := f.Allocate(context.Background(), "purchase_order", nil)
	require.NoError(t, err)
	require.Equal(t, "BC-2024-001", alloc.Number)
	require.Equal(t, PathDefault, alloc.Path)
	require.True(t, alloc.Provisional)
	require.ElementsMatch(t, []string{"heritage", "multi", "purchase_order"}, alloc.Unavailable)
}

func TestAllocate_UnknownDomain(t *testing.T) {
	fx := newFixture(t)
	_, err := NewFacade(fx.scanner).Allocate(context.Background(), "invoices", nil)
	require.ErrorIs(t, err, domain.ErrUnknownDomain)
}

func TestAllocate_CancelledContext(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFacade(fx.scanner).Allocate(ctx, "heritage", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIssue_RetriesOnConstraintViolation(t *testing.T) {
	fx := newFixture(t)
	m := metrics.New()
	f := NewFacade(fx.scanner, WithClock(fixedClock), WithMetrics(m))

	// A concurrent writer takes each allocated number once before we insert.
	var tried []string
	alloc, err := f.Issue(context.Background(), "multi", nil, func(ctx context.Context, number string) error {
		tried = append(tried, number)
		if len(tried) < 3 {
			_, err := fx.heritage.Insert(ctx, domain.NewRecord{Number: number})
			require.NoError(t, err)
			return &domain.ConstraintViolationError{Domain: "multi", Number: number}
		}
		_, err := fx.multi.Insert(ctx, domain.NewRecord{Number: number})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2024-001", "2024-002", "2024-003"}, tried)
	require.Equal(t, "2024-003", alloc.Number)
	require.Equal(t, 2.0, testutil.ToFloat64(m.IssueRetries.WithLabelValues("multi")))
}

func TestIssue_GivesUpAfterAttempts(t *testing.T) {
	fx := newFixture(t)
	f := NewFacade(fx.scanner, WithClock(fixedClock), WithIssueAttempts(2))

	calls := 0
	_, err := f.Issue(context.Background(), "multi", nil, func(context.Context, string) error {
		calls++
		return &domain.ConstraintViolationError{Domain: "multi", Number: "x"}
	})
	require.ErrorIs(t, err, domain.ErrConstraintViolation)
	require.Equal(t, 2, calls)
}

func TestIssue_OtherErrorsAreNotRetried(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("disk full")
	calls := 0
	_, err := NewFacade(fx.scanner).Issue(context.Background(), "multi", nil, func(context.Context, string) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestIssueRecord(t *testing.T) {
	fx := newFixture(t)
	fx.heritage.WithRecords(seed("2024-001")...)
	f := NewFacade(fx.scanner, WithClock(fixedClock))

	alloc, id, err := f.IssueRecord(context.Background(), "multi", nil, domain.NewRecord{Label: "Tremblay"})
	require.NoError(t, err)
	require.Equal(t, "2024-002", alloc.Number)

	rec, ok := fx.multi.Record(id)
	require.True(t, ok)
	require.Equal(t, "2024-002", rec.Number)
	require.Equal(t, "Tremblay", rec.Label)
	require.True(t, fixedClock().Equal(*rec.CreatedAt))
}

// Sequential allocate-then-insert never hands out a number already present in any domain.
func TestProperty_SequentialAllocationsAreDistinct(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		heritage := memstore.New(domain.DomainDescriptor{Name: "heritage"})
		multi := memstore.New(domain.DomainDescriptor{Name: "multi"})
		stores := []*memstore.Store{heritage, multi}

		// Pre-existing data, possibly with gaps and malformed values.
		existing := rapid.SliceOfN(rapid.IntRange(1, 40), 0, 10).Draw(t, "existing")
		for i, seq := range existing {
			stores[i%2].WithRecords(memstore.Seed{Number: fmt.Sprintf("2024-%03d", seq)})
		}
		if rapid.Bool().Draw(t, "malformed") {
			multi.WithRecords(memstore.Seed{Number: "2024-abc"})
		}

		s, err := registry.NewScanner([]domain.Store{heritage, multi})
		if err != nil {
			t.Fatal(err)
		}
		f := NewFacade(s, WithClock(fixedClock))

		seen := make(map[string]bool)
		for _, n := range heritage.Numbers() {
			seen[n] = true
		}
		for _, n := range multi.Numbers() {
			seen[n] = true
		}

		n := rapid.IntRange(1, 15).Draw(t, "allocations")
		for i := 0; i < n; i++ {
			target := stores[rapid.IntRange(0, 1).Draw(t, "domain")]
			alloc, err := f.Allocate(context.Background(), target.Descriptor().Name, nil)
			if err != nil {
				t.Fatal(err)
			}
			if seen[alloc.Number] {
				t.Fatalf("allocated %s which already exists", alloc.Number)
			}
			seen[alloc.Number] = true
			if _, err := target.Insert(context.Background(), domain.NewRecord{Number: alloc.Number}); err != nil {
				t.Fatal(err)
			}
		}
	})
}
