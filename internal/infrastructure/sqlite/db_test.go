package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quoteworks/docnum/internal/numbering/domain"
)

// TestNewDB_CreatesDirectory verifies that NewDB creates the parent directory if missing.
func TestNewDB_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "ledger.db")

	db, err := NewDB(dbPath)
	require.NoError(t, err, "NewDB should succeed even with nested non-existent directories")
	defer db.Close()

	info, err := os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err, "Directory should exist after NewDB")
	require.True(t, info.IsDir(), "Should be a directory")

	// Unix only - Windows doesn't support Unix permissions
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0700), info.Mode().Perm(), "Directory should have 0700 permissions")
	}
}

// TestNewDB_RunsMigrations verifies that NewDB creates the reassignments table.
func TestNewDB_RunsMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	db, err := NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var tableName string
	err = db.conn.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='reassignments'",
	).Scan(&tableName)
	require.NoError(t, err, "reassignments table should exist after migrations")
	require.Equal(t, "reassignments", tableName)
}

// TestNewDB_PreMigrationBackup verifies that a .bak file is created when the
// database already exists, and that reopening keeps the data.
func TestNewDB_PreMigrationBackup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	db1, err := NewDB(dbPath)
	require.NoError(t, err)
	err = db1.Ledger().Record(context.Background(), "pass-1", "automatic", time.Now(), []domain.Reassignment{
		{OldNumber: "2025-001", NewNumber: "2025-004", Domain: "multi", RecordID: 7},
	})
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	_, err = os.Stat(dbPath + ".bak")
	require.True(t, os.IsNotExist(err), "no backup on first creation")

	db2, err := NewDB(dbPath)
	require.NoError(t, err, "reopening should succeed")
	defer db2.Close()

	_, err = os.Stat(dbPath + ".bak")
	require.NoError(t, err, "backup should exist after reopening")

	entries, err := db2.Ledger().ListByPass(context.Background(), "pass-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestNewDB_Pragmas verifies WAL mode and the busy timeout.
func TestNewDB_Pragmas(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.Connection().QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.Connection().QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	require.Equal(t, busyTimeoutMs, timeout)
}

func TestHasSchema(t *testing.T) {
	require.True(t, HasSchema("heritage"))
	require.True(t, HasSchema("multi"))
	require.True(t, HasSchema("purchase_order"))
	require.True(t, HasSchema("ledger"))
	require.False(t, HasSchema("unknown"))
	require.False(t, HasSchema(""))
}
