package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quoteworks/docnum/internal/numbering/domain"
)

func TestStore_ListSkipsEmpty(t *testing.T) {
	s := New(domain.DomainDescriptor{Name: "multi"}).WithRecords(
		Seed{Number: "2025-001"}, Seed{Number: ""}, Seed{Number: "junk"},
	)
	records, err := s.ListNumbers(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.False(t, records[0].Malformed)
	require.True(t, records[1].Malformed)
	require.Equal(t, int64(3), records[1].RecordID)
}

func TestStore_UpdateNumber(t *testing.T) {
	ctx := context.Background()
	s := New(domain.DomainDescriptor{Name: "multi"}).WithRecords(
		Seed{Number: "2025-001"}, Seed{Number: "2025-002"},
	)

	require.NoError(t, s.UpdateNumber(ctx, 1, "2025-003"))
	require.Equal(t, []string{"2025-003", "2025-002"}, s.Numbers())
	require.ErrorIs(t, s.UpdateNumber(ctx, 1, "2025-002"), domain.ErrConstraintViolation)
	require.ErrorIs(t, s.UpdateNumber(ctx, 42, "2025-009"), domain.ErrNotFound)
	require.Equal(t, 1, s.Writes())

	boom := errors.New("boom")
	s.FailUpdate(2, boom)
	require.ErrorIs(t, s.UpdateNumber(ctx, 2, "2025-010"), boom)
}

func TestStore_Unavailable(t *testing.T) {
	s := New(domain.DomainDescriptor{Name: "heritage"})
	s.SetUnavailable(true)
	_, err := s.ListNumbers(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	_, err = s.Insert(context.Background(), domain.NewRecord{Number: "2025-001"})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestStore_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New(domain.DomainDescriptor{Name: "multi"})
	id, err := s.Insert(ctx, domain.NewRecord{Number: "2025-001"})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	_, err = s.Insert(ctx, domain.NewRecord{Number: "2025-001"})
	require.ErrorIs(t, err, domain.ErrConstraintViolation)
}
