package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sqlite3 "github.com/ncruces/go-sqlite3"

	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/numbering/domain"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s may be used as a table or column name.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

func quote(ident string) string {
	return `"` + ident + `"`
}

// DomainStore implements domain.Store over one SQLite partition.
type DomainStore struct {
	desc domain.DomainDescriptor
	pool *HandlePool
}

// Ensure DomainStore implements domain.Store.
var _ domain.Store = (*DomainStore)(nil)

// NewDomainStore validates the descriptor's identifiers and returns an adapter.
// The partition file is not opened until first use.
func NewDomainStore(desc domain.DomainDescriptor, pool *HandlePool) (*DomainStore, error) {
	idents := map[string]string{
		"table":         desc.Table,
		"number_column": desc.NumberColumn,
		"id_column":     desc.IDColumn,
	}
	if desc.CreatedAtColumn != "" {
		idents["created_at_column"] = desc.CreatedAtColumn
	}
	if desc.LabelColumn != "" {
		idents["label_column"] = desc.LabelColumn
	}
	for field, ident := range idents {
		if !ValidIdentifier(ident) {
			return nil, fmt.Errorf("domain %s: invalid %s %q", desc.Name, field, ident)
		}
	}
	if desc.StorePath == "" {
		return nil, fmt.Errorf("domain %s: store path is required", desc.Name)
	}
	return &DomainStore{desc: desc, pool: pool}, nil
}

// Descriptor returns the static description of the partition.
func (s *DomainStore) Descriptor() domain.DomainDescriptor {
	return s.desc
}

func (s *DomainStore) conn(ctx context.Context) (*sql.DB, error) {
	conn, err := s.pool.Acquire(ctx, s.desc.StorePath)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Domain: s.desc.Name, Err: err}
	}
	return conn, nil
}

func (s *DomainStore) unavailable(ctx context.Context, err error) error {
	s.pool.Release(ctx, s.desc.StorePath)
	return &domain.StoreUnavailableError{Domain: s.desc.Name, Err: err}
}

func (s *DomainStore) selectColumns() string {
	cols := []string{
		quote(s.desc.IDColumn),
		"CAST(" + quote(s.desc.NumberColumn) + " AS TEXT)",
	}
	if s.desc.CreatedAtColumn != "" {
		cols = append(cols, "CAST("+quote(s.desc.CreatedAtColumn)+" AS TEXT)")
	} else {
		cols = append(cols, "NULL")
	}
	if s.desc.LabelColumn != "" {
		cols = append(cols, "CAST("+quote(s.desc.LabelColumn)+" AS TEXT)")
	} else {
		cols = append(cols, "NULL")
	}
	return strings.Join(cols, ", ")
}

// ListNumbers returns every record with a non-empty number, ordered by id.
func (s *DomainStore) ListNumbers(ctx context.Context) ([]domain.NumberRecord, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	num := quote(s.desc.NumberColumn)
	//nolint:gosec // G202: identifiers are validated against identifierPattern
	query := `SELECT ` + s.selectColumns() + ` FROM ` + quote(s.desc.Table) +
		` WHERE ` + num + ` IS NOT NULL AND ` + num + ` <> '' ORDER BY ` + quote(s.desc.IDColumn)

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, s.unavailable(ctx, fmt.Errorf("listing numbers: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var records []domain.NumberRecord
	for rows.Next() {
		var m NumberModel
		if err := rows.Scan(&m.ID, &m.Number, &m.CreatedAt, &m.Label); err != nil {
			return nil, s.unavailable(ctx, fmt.Errorf("scanning number row: %w", err))
		}
		records = append(records, m.toDomain(s.desc))
	}
	if err := rows.Err(); err != nil {
		return nil, s.unavailable(ctx, fmt.Errorf("iterating number rows: %w", err))
	}

	log.Debug(log.CatStore, "Listed numbers", "domain", s.desc.Name, "count", len(records))
	return records, nil
}

// UpdateNumber rewrites the number of one record inside a single transaction.
// Only the number column is written; timestamp columns are left untouched.
func (s *DomainStore) UpdateNumber(ctx context.Context, recordID int64, newNumber string) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return s.unavailable(ctx, fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	table, num, id := quote(s.desc.Table), quote(s.desc.NumberColumn), quote(s.desc.IDColumn)

	// Legacy partitions may lack the unique index, so the check is explicit too.
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE `+num+` = ? AND `+id+` <> ? LIMIT 1`, //nolint:gosec // G202: validated identifiers
		newNumber, recordID,
	).Scan(&exists)
	switch {
	case err == nil:
		return &domain.ConstraintViolationError{Domain: s.desc.Name, Number: newNumber}
	case !errors.Is(err, sql.ErrNoRows):
		return s.unavailable(ctx, fmt.Errorf("checking number uniqueness: %w", err))
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET `+num+` = ? WHERE `+id+` = ?`, //nolint:gosec // G202: validated identifiers
		newNumber, recordID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConstraintViolationError{Domain: s.desc.Name, Number: newNumber}
		}
		return fmt.Errorf("domain %s: updating number: %w", s.desc.Name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("domain %s: getting rows affected: %w", s.desc.Name, err)
	}
	if affected == 0 {
		return &domain.NotFoundError{Domain: s.desc.Name, RecordID: recordID}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return &domain.ConstraintViolationError{Domain: s.desc.Name, Number: newNumber}
		}
		return fmt.Errorf("domain %s: committing number update: %w", s.desc.Name, err)
	}

	log.Info(log.CatStore, "Number updated", "domain", s.desc.Name, "record_id", recordID, "number", newNumber)
	return nil
}

// Insert persists a new numbered record. Extra fields are written as-is;
// their names must be valid identifiers.
func (s *DomainStore) Insert(ctx context.Context, rec domain.NewRecord) (int64, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	cols := []string{quote(s.desc.NumberColumn)}
	args := []any{rec.Number}
	if s.desc.LabelColumn != "" {
		cols = append(cols, quote(s.desc.LabelColumn))
		args = append(args, rec.Label)
	}
	if s.desc.CreatedAtColumn != "" && !rec.CreatedAt.IsZero() {
		cols = append(cols, quote(s.desc.CreatedAtColumn))
		args = append(args, rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}

	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !ValidIdentifier(name) {
			return 0, fmt.Errorf("domain %s: invalid field name %q", s.desc.Name, name)
		}
		cols = append(cols, quote(name))
		args = append(args, rec.Fields[name])
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	//nolint:gosec // G202: identifiers are validated, values are bound
	query := `INSERT INTO ` + quote(s.desc.Table) + ` (` + strings.Join(cols, ", ") + `) VALUES (` + placeholders + `)`

	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) && s.numberExists(ctx, conn, rec.Number) {
			return 0, &domain.ConstraintViolationError{Domain: s.desc.Name, Number: rec.Number}
		}
		return 0, fmt.Errorf("domain %s: inserting record: %w", s.desc.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("domain %s: getting last insert id: %w", s.desc.Name, err)
	}
	return id, nil
}

func (s *DomainStore) numberExists(ctx context.Context, conn *sql.DB, number string) bool {
	var one int
	err := conn.QueryRowContext(ctx,
		`SELECT 1 FROM `+quote(s.desc.Table)+` WHERE `+quote(s.desc.NumberColumn)+` = ? LIMIT 1`, //nolint:gosec // G202: validated identifiers
		number,
	).Scan(&one)
	return err == nil
}

// Provision creates the partition file if needed, applies the embedded
// migrations of the descriptor's schema, and ensures a unique index on the
// number column. The index is the only durable uniqueness guarantee.
func (s *DomainStore) Provision(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.desc.StorePath), 0o750); err != nil {
		return fmt.Errorf("domain %s: creating data directory: %w", s.desc.Name, err)
	}

	conn, err := sql.Open("sqlite3", domainDSN(s.desc.StorePath, true))
	if err != nil {
		return fmt.Errorf("domain %s: opening store: %w", s.desc.Name, err)
	}
	defer func() { _ = conn.Close() }()

	if s.desc.Schema != "" {
		if !HasSchema(s.desc.Schema) {
			return fmt.Errorf("domain %s: unknown schema %q", s.desc.Name, s.desc.Schema)
		}
		if err := runMigrations(conn, s.desc.Schema); err != nil {
			return fmt.Errorf("domain %s: %w", s.desc.Name, err)
		}
	}

	index := quote("uq_" + s.desc.Table + "_" + s.desc.NumberColumn)
	//nolint:gosec // G202: validated identifiers
	stmt := `CREATE UNIQUE INDEX IF NOT EXISTS ` + index + ` ON ` + quote(s.desc.Table) + `(` + quote(s.desc.NumberColumn) + `)`
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("domain %s: cannot add unique index, duplicate numbers exist inside the domain: %w", s.desc.Name, err)
		}
		return fmt.Errorf("domain %s: creating unique index: %w", s.desc.Name, err)
	}

	// Drop any handle opened before the schema existed.
	s.pool.Release(ctx, s.desc.StorePath)

	log.Info(log.CatStore, "Domain store provisioned", "domain", s.desc.Name, "path", s.desc.StorePath, "schema", s.desc.Schema)
	return nil
}

// Backup writes a consistent snapshot of the partition to dest using VACUUM INTO.
func (s *DomainStore) Backup(ctx context.Context, dest string) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("domain %s: creating backup directory: %w", s.desc.Name, err)
	}
	if _, err := conn.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("domain %s: backing up to %s: %w", s.desc.Name, dest, err)
	}
	log.Info(log.CatStore, "Domain store backed up", "domain", s.desc.Name, "dest", dest)
	return nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY)
}
