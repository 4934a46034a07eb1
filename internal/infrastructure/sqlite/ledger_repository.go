package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/numbering/domain"
)

// LedgerEntry is one applied reassignment as recorded in the ledger.
type LedgerEntry struct {
	PassID    string
	Mode      string
	AppliedAt time.Time
	domain.Reassignment
}

// LedgerRepository journals applied reassignments in the coordinator's own database.
type LedgerRepository struct {
	db *sql.DB
}

func newLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Record appends the reassignments of one pass in a single transaction.
func (r *LedgerRepository) Record(ctx context.Context, passID, mode string, at time.Time, items []domain.Reassignment) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reassignments (pass_id, mode, domain, record_id, old_number, new_number, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing ledger insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, passID, mode, item.Domain, item.RecordID,
			item.OldNumber, item.NewNumber, at.Unix()); err != nil {
			return fmt.Errorf("recording reassignment of %s: %w", item.OldNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger: %w", err)
	}
	log.Debug(log.CatLedger, "Recorded reassignments", "pass_id", passID, "count", len(items))
	return nil
}

// ListByPass returns the entries of one pass in insertion order.
func (r *LedgerRepository) ListByPass(ctx context.Context, passID string) ([]LedgerEntry, error) {
	return r.list(ctx, `WHERE pass_id = ?`, passID)
}

// ListByNumber returns every entry whose old or new number equals number.
func (r *LedgerRepository) ListByNumber(ctx context.Context, number string) ([]LedgerEntry, error) {
	return r.list(ctx, `WHERE old_number = ? OR new_number = ?`, number, number)
}

func (r *LedgerRepository) list(ctx context.Context, where string, args ...any) ([]LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pass_id, mode, domain, record_id, old_number, new_number, applied_at
		FROM reassignments `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []LedgerEntry
	for rows.Next() {
		var m ReassignmentModel
		if err := rows.Scan(&m.ID, &m.PassID, &m.Mode, &m.Domain, &m.RecordID,
			&m.OldNumber, &m.NewNumber, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		entries = append(entries, m.toEntry())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger rows: %w", err)
	}
	return entries, nil
}

func (m *ReassignmentModel) toEntry() LedgerEntry {
	return LedgerEntry{
		PassID:    m.PassID,
		Mode:      m.Mode,
		AppliedAt: time.Unix(m.AppliedAt, 0).UTC(),
		Reassignment: domain.Reassignment{
			OldNumber: m.OldNumber,
			NewNumber: m.NewNumber,
			Domain:    m.Domain,
			RecordID:  m.RecordID,
		},
	}
}
