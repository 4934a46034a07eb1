package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quoteworks/docnum/internal/metrics"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/memstore"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func seeds(numbers ...string) []memstore.Seed {
	out := make([]memstore.Seed, len(numbers))
	for i, n := range numbers {
		out[i] = memstore.Seed{Number: n}
	}
	return out
}

func newStores() (*memstore.Store, *memstore.Store, *memstore.Store) {
	heritage := memstore.New(domain.DomainDescriptor{Name: "heritage"}).WithRecords(
		memstore.Seed{Number: "2024-001", CreatedAt: ts("2024-01-05")},
		memstore.Seed{Number: "2024-002", CreatedAt: ts("2024-01-10")},
	)
	multi := memstore.New(domain.DomainDescriptor{Name: "multi"}).WithRecords(
		memstore.Seed{Number: "2024-002", CreatedAt: ts("2024-02-01")},
		memstore.Seed{Number: "2024-003", CreatedAt: ts("2024-02-02")},
	)
	po := memstore.New(domain.DomainDescriptor{Name: "purchase_order", Prefix: "BC-"}).WithRecords(
		seeds("BC-2024-001", "BC-2023-009")...,
	)
	return heritage, multi, po
}

func newScanner(t *testing.T, stores ...domain.Store) *Scanner {
	t.Helper()
	s, err := NewScanner(stores)
	require.NoError(t, err)
	return s
}

func TestNewScanner_Validation(t *testing.T) {
	_, err := NewScanner(nil)
	require.Error(t, err)

	a := memstore.New(domain.DomainDescriptor{Name: "multi"})
	b := memstore.New(domain.DomainDescriptor{Name: "multi"})
	_, err = NewScanner([]domain.Store{a, b})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate domain")
}

func TestScanner_Store(t *testing.T) {
	heritage, multi, po := newStores()
	s := newScanner(t, heritage, multi, po)

	st, err := s.Store("multi")
	require.NoError(t, err)
	require.Equal(t, "multi", st.Descriptor().Name)

	_, err = s.Store("invoices")
	require.ErrorIs(t, err, domain.ErrUnknownDomain)
	require.Len(t, s.Stores(), 3)
}

func TestScan_PreservesOccurrencesInScanOrder(t *testing.T) {
	heritage, multi, po := newStores()
	reg, err := newScanner(t, heritage, multi, po).Scan(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, reg.Complete())

	occ := reg.Occurrences("2024-002")
	require.Len(t, occ, 2)
	require.Equal(t, "heritage", occ[0].Domain)
	require.Equal(t, "multi", occ[1].Domain)

	require.Equal(t, []string{"2024-001", "2024-002", "2024-003", "BC-2024-001", "BC-2023-009"}, reg.Numbers())
	require.Len(t, reg.Records(), 6)
	require.Equal(t, 5, reg.Len())
}

func TestScan_YearFilter(t *testing.T) {
	heritage, multi, po := newStores()
	year := 2024
	reg, err := newScanner(t, heritage, multi, po).Scan(context.Background(), &year)
	require.NoError(t, err)

	require.True(t, reg.Contains("BC-2024-001"))
	require.False(t, reg.Contains("BC-2023-009"))
	require.Equal(t, &year, reg.Year())
}

func TestScan_YearFilterKeepsNumbersFiledInAnotherDomain(t *testing.T) {
	heritage := memstore.New(domain.DomainDescriptor{Name: "heritage"}).WithRecords(seeds("BC-2024-001", "BC-2023-004")...)
	multi := memstore.New(domain.DomainDescriptor{Name: "multi"})
	po := memstore.New(domain.DomainDescriptor{Name: "purchase_order", Prefix: "BC-"}).WithRecords(seeds("BC-2024-001")...)
	s := newScanner(t, heritage, multi, po)

	year := 2024
	filtered, err := s.Scan(context.Background(), &year)
	require.NoError(t, err)
	require.True(t, filtered.Contains("BC-2024-001"))
	require.False(t, filtered.Contains("BC-2023-004"))

	all, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, Detect(all), Detect(filtered))
	require.Len(t, Detect(filtered), 1)
}

func TestScan_UnavailableDomainTreatedAsEmpty(t *testing.T) {
	heritage, multi, po := newStores()
	extra := memstore.New(domain.DomainDescriptor{Name: "archive"}).WithRecords(seeds("2024-003")...)
	extra.SetUnavailable(true)

	m := metrics.New()
	s, err := NewScanner([]domain.Store{heritage, multi, po, extra}, WithMetrics(m))
	require.NoError(t, err)

	reg, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.False(t, reg.Complete())
	require.Equal(t, []string{"archive"}, reg.Unavailable())
	require.True(t, reg.IsUnavailable("archive"))

	// Detection over the reachable domains is unaffected.
	conflicts := Detect(reg)
	require.Len(t, conflicts, 1)
	require.Equal(t, "2024-002", conflicts[0].Number)
}

func TestScan_AllUnavailable(t *testing.T) {
	heritage, multi, _ := newStores()
	heritage.SetUnavailable(true)
	multi.SetUnavailable(true)

	reg, err := newScanner(t, heritage, multi).Scan(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrNoReachableDomain)
	require.True(t, IsNoReachableDomain(err))
	require.NotNil(t, reg)
	require.Zero(t, reg.Len())
	require.Equal(t, []string{"heritage", "multi"}, reg.Unavailable())
}

func TestScan_CancelledContext(t *testing.T) {
	heritage, multi, _ := newStores()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newScanner(t, heritage, multi).Scan(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_MaxSequenceSkipsMalformed(t *testing.T) {
	reg := New()
	for _, n := range []string{"2024-001", "2024-abc", "2024-012", "2023-999", "BC-2024-050", "2024-"} {
		reg.Add(domain.NumberRecord{Domain: "d", Number: n, Malformed: !domain.IsWellFormed(n, "")})
	}
	require.Equal(t, 12, reg.MaxSequence("", 2024))
	require.Equal(t, 50, reg.MaxSequence("BC-", 2024))
	require.Equal(t, 0, reg.MaxSequence("", 2025))
	require.Contains(t, reg.Malformed(), "2024-abc")
}

func TestDetect(t *testing.T) {
	reg := New()
	reg.Add(domain.NumberRecord{Domain: "multi", RecordID: 1, Number: "2024-005"})
	reg.Add(domain.NumberRecord{Domain: "heritage", RecordID: 1, Number: "2024-001"})
	reg.Add(domain.NumberRecord{Domain: "heritage", RecordID: 2, Number: "2024-005"})
	reg.Add(domain.NumberRecord{Domain: "multi", RecordID: 2, Number: "2024-abc", Malformed: true})
	reg.Add(domain.NumberRecord{Domain: "purchase_order", RecordID: 2, Number: "2024-abc", Malformed: true})
	reg.Add(domain.NumberRecord{Domain: "multi", RecordID: 3, Number: "2024-001"})

	conflicts := Detect(reg)
	require.Len(t, conflicts, 3)
	require.Equal(t, "2024-001", conflicts[0].Number)
	require.Equal(t, "2024-005", conflicts[1].Number)
	require.Equal(t, "2024-abc", conflicts[2].Number, "malformed duplicates are still detected")
	require.Equal(t, []string{"multi", "heritage"}, conflicts[1].Domains())

	require.Empty(t, Detect(New()))
	require.Nil(t, Detect(nil))
}

func TestDetect_SameDomainDuplicate(t *testing.T) {
	reg := New()
	reg.Add(domain.NumberRecord{Domain: "multi", RecordID: 1, Number: "2024-001"})
	reg.Add(domain.NumberRecord{Domain: "multi", RecordID: 2, Number: "2024-001"})

	conflicts := Detect(reg)
	require.Len(t, conflicts, 1)
	require.Equal(t, []string{"multi"}, conflicts[0].Domains())
}

func TestRegistry_Entries(t *testing.T) {
	reg := New()
	reg.Add(domain.NumberRecord{Domain: "multi", Number: "2024-002"})
	reg.Add(domain.NumberRecord{Domain: "multi", Number: "2024-001"})

	entries := reg.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "2024-001", entries[0].Number)
}
