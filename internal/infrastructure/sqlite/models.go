package sqlite

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/quoteworks/docnum/internal/numbering/domain"
)

// NumberModel is one numbered row as read from a partition.
// Number, created-at and label are selected as TEXT so schema-divergent
// column types all scan the same way.
type NumberModel struct {
	ID        int64
	Number    sql.NullString
	CreatedAt sql.NullString
	Label     sql.NullString
}

// timestampLayouts are the textual forms SQLite and the legacy application wrote.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02",
}

// parseTimestamp parses a stored created-at value. Unix seconds are accepted.
// Returns nil when the value is empty or unparseable.
func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t
	}
	return nil
}

// toDomain converts a NumberModel to a NumberRecord of descriptor d.
func (m *NumberModel) toDomain(d domain.DomainDescriptor) domain.NumberRecord {
	rec := domain.NumberRecord{
		Domain:   d.Name,
		RecordID: m.ID,
		Number:   m.Number.String,
	}
	if m.Label.Valid {
		rec.Label = m.Label.String
	}
	if m.CreatedAt.Valid {
		rec.CreatedAt = parseTimestamp(m.CreatedAt.String)
	}
	rec.Malformed = !domain.IsWellFormed(rec.Number, d.Prefix)
	return rec
}

// ReassignmentModel is one row of the reassignments ledger.
type ReassignmentModel struct {
	ID        int64
	PassID    string
	Mode      string
	Domain    string
	RecordID  int64
	OldNumber string
	NewNumber string
	AppliedAt int64 // Unix timestamp
}
