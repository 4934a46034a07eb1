// Package domain provides the pure model of the document-numbering coordinator.
//
// It holds the value types shared by every other numbering package:
//   - DomainDescriptor describes one storage partition and where its number column lives
//   - NumberRecord is a read-only view over one numbered row
//   - Store is the port each partition adapter implements
//   - typed errors for the four failure kinds the coordinator distinguishes
//
// The package has no infrastructure dependencies.
package domain

import "time"

// DomainDescriptor describes one independently-managed storage partition.
// Descriptors are built once from configuration and never mutated.
type DomainDescriptor struct {
	// Name identifies the domain (e.g. "heritage", "multi", "purchase_order").
	Name string

	// StorePath is the SQLite file holding the partition.
	StorePath string

	// Table is the table holding the documents.
	Table string

	// NumberColumn holds the assigned document number.
	NumberColumn string

	// CreatedAtColumn holds the creation timestamp. May be empty.
	CreatedAtColumn string

	// LabelColumn holds a human-readable label such as the client name. May be empty.
	LabelColumn string

	// IDColumn holds the integer record identifier.
	IDColumn string

	// Prefix is prepended to every number of this domain's series ("BC-" for purchase orders).
	Prefix string

	// Schema names the built-in schema used to provision the store. Empty means the
	// table is managed elsewhere and only the unique index is ensured.
	Schema string
}

// YearPrefix returns the string every well-formed number of the given year starts with.
func (d DomainDescriptor) YearPrefix(year int) string {
	return YearPrefix(d.Prefix, year)
}

// NumberRecord is one numbered document as seen by a scan.
// It is a view over an existing row and is never persisted on its own.
type NumberRecord struct {
	Domain    string
	RecordID  int64
	Number    string
	Label     string
	CreatedAt *time.Time

	// Malformed is set when Number does not match prefix + "YYYY-" + digits for its domain.
	Malformed bool
}

// HasTimestamp reports whether the record carries a creation timestamp.
func (r NumberRecord) HasTimestamp() bool {
	return r.CreatedAt != nil && !r.CreatedAt.IsZero()
}

// NewRecord is a freshly numbered document handed to Store.Insert.
type NewRecord struct {
	Number    string
	Label     string
	CreatedAt time.Time

	// Fields carries values for additional NOT NULL columns of divergent schemas.
	Fields map[string]any
}

// Reassignment records one number rewritten by a resolution pass.
type Reassignment struct {
	OldNumber string `json:"old_number" yaml:"old_number"`
	NewNumber string `json:"new_number" yaml:"new_number"`
	Domain    string `json:"domain" yaml:"domain"`
	RecordID  int64  `json:"record_id" yaml:"record_id"`
}
