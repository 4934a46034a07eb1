package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/quoteworks/docnum/internal/log"
)

//go:embed migrations
var migrationsFS embed.FS

// HasSchema reports whether migrations are embedded for the named schema.
func HasSchema(schema string) bool {
	if schema == "" {
		return false
	}
	entries, err := fs.ReadDir(migrationsFS, "migrations/"+schema)
	return err == nil && len(entries) > 0
}

// runMigrations applies the embedded migrations of one schema to conn.
// Each schema keeps its own version table so several schemas may share a file.
func runMigrations(conn *sql.DB, schema string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+schema)
	if err != nil {
		return fmt.Errorf("loading %s migrations: %w", schema, err)
	}

	driver, err := newMigrateDriver(conn, "schema_migrations_"+schema)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying %s migrations: %w", schema, err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Debug(log.CatStore, "Migrations applied", "schema", schema, "version", version, "dirty", dirty)
	}
	return nil
}

// migrateDriver is a golang-migrate database.Driver over a connection opened
// with the ncruces driver. It never closes the connection it was given.
type migrateDriver struct {
	conn   *sql.DB
	table  string
	locked atomic.Bool
}

var _ database.Driver = (*migrateDriver)(nil)

func newMigrateDriver(conn *sql.DB, table string) (*migrateDriver, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid migrations table %q", table)
	}
	d := &migrateDriver{conn: conn, table: table}
	//nolint:gosec // G202: validated identifier
	stmt := `CREATE TABLE IF NOT EXISTS ` + quote(table) + ` (version INTEGER NOT NULL, dirty BOOLEAN NOT NULL)`
	if _, err := conn.Exec(stmt); err != nil {
		return nil, fmt.Errorf("creating %s: %w", table, err)
	}
	return d, nil
}

// Open is unsupported; the driver is only built from an existing connection.
func (d *migrateDriver) Open(string) (database.Driver, error) {
	return nil, errors.New("sqlite migrate driver: open by URL is not supported")
}

// Close leaves the connection open; its owner closes it.
func (d *migrateDriver) Close() error { return nil }

func (d *migrateDriver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *migrateDriver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

func (d *migrateDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	if _, err := d.conn.Exec(string(body)); err != nil {
		return &database.Error{OrigErr: err, Err: "migration failed", Query: body}
	}
	return nil
}

func (d *migrateDriver) SetVersion(version int, dirty bool) error {
	ctx := context.Background()
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+quote(d.table)); err != nil { //nolint:gosec // G202: validated identifier
		return &database.Error{OrigErr: err, Err: "clearing version failed"}
	}
	if version >= 0 || (version == database.NilVersion && dirty) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+quote(d.table)+` (version, dirty) VALUES (?, ?)`, //nolint:gosec // G202: validated identifier
			version, dirty,
		); err != nil {
			return &database.Error{OrigErr: err, Err: "setting version failed"}
		}
	}
	return tx.Commit()
}

func (d *migrateDriver) Version() (int, bool, error) {
	var version int
	var dirty bool
	err := d.conn.QueryRow(`SELECT version, dirty FROM `+quote(d.table)+` LIMIT 1`).Scan(&version, &dirty) //nolint:gosec // G202: validated identifier
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return database.NilVersion, false, nil
	case err != nil:
		return 0, false, &database.Error{OrigErr: err, Err: "reading version failed"}
	}
	return version, dirty, nil
}

// Drop removes every user table in the database.
func (d *migrateDriver) Drop() error {
	rows, err := d.conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, name := range tables {
		if _, err := d.conn.Exec(`DROP TABLE IF EXISTS ` + quote(name)); err != nil { //nolint:gosec // G202: names from sqlite_master
			return err
		}
	}
	return nil
}
