package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quoteworks/docnum/internal/numbering/domain"
)

func heritageDescriptor(dir string) domain.DomainDescriptor {
	return domain.DomainDescriptor{
		Name:            "heritage",
		StorePath:       filepath.Join(dir, "soumissions_heritage.db"),
		Table:           "soumissions_heritage",
		NumberColumn:    "numero",
		CreatedAtColumn: "created_at",
		LabelColumn:     "client_nom",
		IDColumn:        "id",
		Schema:          "heritage",
	}
}

func newProvisionedStore(t *testing.T, desc domain.DomainDescriptor) *DomainStore {
	t.Helper()
	pool := NewHandlePool(time.Minute)
	t.Cleanup(func() { _ = pool.Close() })

	store, err := NewDomainStore(desc, pool)
	require.NoError(t, err)
	require.NoError(t, store.Provision(context.Background()))
	return store
}

func TestNewDomainStore_RejectsInvalidIdentifiers(t *testing.T) {
	pool := NewHandlePool(time.Minute)
	defer pool.Close()

	desc := heritageDescriptor(t.TempDir())
	desc.Table = "soumissions; DROP TABLE x"
	_, err := NewDomainStore(desc, pool)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid table")

	desc = heritageDescriptor(t.TempDir())
	desc.LabelColumn = "client nom"
	_, err = NewDomainStore(desc, pool)
	require.Error(t, err)

	desc = heritageDescriptor(t.TempDir())
	desc.StorePath = ""
	_, err = NewDomainStore(desc, pool)
	require.Error(t, err)
}

func TestDomainStore_MissingFileIsUnavailable(t *testing.T) {
	pool := NewHandlePool(time.Minute)
	defer pool.Close()

	store, err := NewDomainStore(heritageDescriptor(t.TempDir()), pool)
	require.NoError(t, err)

	_, err = store.ListNumbers(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	var unavailable *domain.StoreUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "heritage", unavailable.Domain)
}

func TestDomainStore_InsertAndList(t *testing.T) {
	store := newProvisionedStore(t, heritageDescriptor(t.TempDir()))
	ctx := context.Background()
	created := time.Date(2025, 1, 2, 8, 30, 0, 0, time.UTC)

	id1, err := store.Insert(ctx, domain.NewRecord{Number: "2025-001", Label: "Tremblay", CreatedAt: created})
	require.NoError(t, err)
	id2, err := store.Insert(ctx, domain.NewRecord{Number: "2025-A01", Label: "Gagnon"})
	require.NoError(t, err)
	require.Greater(t, id2, id1)

	records, err := store.ListNumbers(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "heritage", records[0].Domain)
	require.Equal(t, id1, records[0].RecordID)
	require.Equal(t, "2025-001", records[0].Number)
	require.Equal(t, "Tremblay", records[0].Label)
	require.True(t, records[0].HasTimestamp())
	require.True(t, created.Equal(*records[0].CreatedAt))
	require.False(t, records[0].Malformed)

	require.True(t, records[1].Malformed)
}

func TestDomainStore_ListSkipsEmptyNumbers(t *testing.T) {
	store := newProvisionedStore(t, heritageDescriptor(t.TempDir()))
	ctx := context.Background()

	conn, err := sql.Open("sqlite3", domainDSN(store.desc.StorePath, false))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Exec(`INSERT INTO soumissions_heritage (numero, client_nom) VALUES (NULL, 'a'), ('', 'b'), ('2025-003', 'c')`)
	require.NoError(t, err)

	records, err := store.ListNumbers(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "2025-003", records[0].Number)
}

func TestDomainStore_InsertDuplicateIsConstraintViolation(t *testing.T) {
	store := newProvisionedStore(t, heritageDescriptor(t.TempDir()))
	ctx := context.Background()

	_, err := store.Insert(ctx, domain.NewRecord{Number: "2025-001"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, domain.NewRecord{Number: "2025-001"})
	require.ErrorIs(t, err, domain.ErrConstraintViolation)
}

func TestDomainStore_UpdateNumber(t *testing.T) {
	store := newProvisionedStore(t, heritageDescriptor(t.TempDir()))
	ctx := context.Background()
	created := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)

	id, err := store.Insert(ctx, domain.NewRecord{Number: "2025-001", CreatedAt: created})
	require.NoError(t, err)
	other, err := store.Insert(ctx, domain.NewRecord{Number: "2025-002"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateNumber(ctx, id, "2025-010"))

	records, err := store.ListNumbers(ctx)
	require.NoError(t, err)
	require.Equal(t, "2025-010", records[0].Number)
	require.True(t, created.Equal(*records[0].CreatedAt), "timestamp must be untouched")

	err = store.UpdateNumber(ctx, other, "2025-010")
	require.ErrorIs(t, err, domain.ErrConstraintViolation)

	err = store.UpdateNumber(ctx, 9999, "2025-099")
	require.ErrorIs(t, err, domain.ErrNotFound)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(9999), notFound.RecordID)
}

func TestDomainStore_UpdateSameNumberIsAllowed(t *testing.T) {
	store := newProvisionedStore(t, heritageDescriptor(t.TempDir()))
	ctx := context.Background()

	id, err := store.Insert(ctx, domain.NewRecord{Number: "2025-001"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateNumber(ctx, id, "2025-001"))
}

func TestDomainStore_ProvisionIsIdempotent(t *testing.T) {
	store := newProvisionedStore(t, heritageDescriptor(t.TempDir()))
	ctx := context.Background()

	_, err := store.Insert(ctx, domain.NewRecord{Number: "2025-001"})
	require.NoError(t, err)
	require.NoError(t, store.Provision(ctx))

	records, err := store.ListNumbers(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDomainStore_ProvisionUnknownSchema(t *testing.T) {
	desc := heritageDescriptor(t.TempDir())
	desc.Schema = "nope"
	pool := NewHandlePool(time.Minute)
	defer pool.Close()

	store, err := NewDomainStore(desc, pool)
	require.NoError(t, err)
	require.Error(t, store.Provision(context.Background()))
}

func TestDomainStore_MultiSchemaWithFields(t *testing.T) {
	dir := t.TempDir()
	store := newProvisionedStore(t, domain.DomainDescriptor{
		Name:            "multi",
		StorePath:       filepath.Join(dir, "soumissions_multi.db"),
		Table:           "soumissions",
		NumberColumn:    "numero_soumission",
		CreatedAtColumn: "date_creation",
		LabelColumn:     "nom_client",
		IDColumn:        "id",
		Schema:          "multi",
	})
	ctx := context.Background()

	_, err := store.Insert(ctx, domain.NewRecord{
		Number: "2025-001",
		Label:  "Roy",
		Fields: map[string]any{"file_type": "pdf", "file_name": "a.pdf", "token": "tok-1"},
	})
	require.NoError(t, err)

	_, err = store.Insert(ctx, domain.NewRecord{
		Number: "2025-002",
		Fields: map[string]any{"bad name": 1},
	})
	require.Error(t, err)

	records, err := store.ListNumbers(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].HasTimestamp(), "column default fills the creation date")
}

func TestDomainStore_Backup(t *testing.T) {
	dir := t.TempDir()
	store := newProvisionedStore(t, heritageDescriptor(dir))
	ctx := context.Background()

	_, err := store.Insert(ctx, domain.NewRecord{Number: "2025-001"})
	require.NoError(t, err)

	dest := filepath.Join(dir, "backups", "heritage.db")
	require.NoError(t, store.Backup(ctx, dest))

	conn, err := sql.Open("sqlite3", domainDSN(dest, false))
	require.NoError(t, err)
	defer conn.Close()

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM soumissions_heritage`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-01-02 03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"1735787045", time.Unix(1735787045, 0).UTC(), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseTimestamp(tt.in)
			if !tt.ok {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}
}
