package sqlite

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/quoteworks/docnum/internal/log"
)

const busyTimeoutMs = 5000

// DB owns the coordinator's own SQLite database, which holds the reassignment ledger.
// Domain partitions are not opened through DB; see DomainStore.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (creating if needed) the ledger database at path.
// The parent directory is created with 0700 permissions, an existing file is
// copied to path+".bak" before migrations run, and the connection uses WAL,
// foreign keys and a 5s busy timeout.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+".bak"); err != nil {
			return nil, fmt.Errorf("backing up database before migration: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", ledgerDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := runMigrations(conn, "ledger"); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info(log.CatLedger, "Ledger database ready", "path", path)
	return &DB{conn: conn, path: path}, nil
}

// Ledger returns the reassignment ledger backed by this database.
func (db *DB) Ledger() *LedgerRepository {
	return newLedgerRepository(db.conn)
}

// Connection returns the underlying *sql.DB.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func ledgerDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		path, busyTimeoutMs)
}

// domainDSN opens an existing partition read-write without creating it,
// so a missing file surfaces as StoreUnavailable instead of an empty database.
func domainDSN(path string, create bool) string {
	mode := "rw"
	if create {
		mode = "rwc"
	}
	return fmt.Sprintf("file:%s?mode=%s&_pragma=busy_timeout(%d)", path, mode, busyTimeoutMs)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:gosec // G304: derived from configured path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
