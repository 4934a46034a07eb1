package presentation

import (
	"time"

	"github.com/quoteworks/docnum/internal/infrastructure/sqlite"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
	"github.com/quoteworks/docnum/internal/numbering/resolver"
)

// RecordDTO is one numbered record.
type RecordDTO struct {
	Domain    string     `json:"domain" yaml:"domain"`
	RecordID  int64      `json:"record_id" yaml:"record_id"`
	Number    string     `json:"number" yaml:"number"`
	Label     string     `json:"label,omitempty" yaml:"label,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Malformed bool       `json:"malformed,omitempty" yaml:"malformed,omitempty"`
}

// EntryDTO is one registry key with every record holding it.
type EntryDTO struct {
	Number      string      `json:"number" yaml:"number"`
	Occurrences []RecordDTO `json:"occurrences" yaml:"occurrences"`
}

// RegistryDTO summarizes a scan.
type RegistryDTO struct {
	Year        *int       `json:"year,omitempty" yaml:"year,omitempty"`
	Count       int        `json:"count" yaml:"count"`
	Complete    bool       `json:"complete" yaml:"complete"`
	Unavailable []string   `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
	Malformed   []string   `json:"malformed,omitempty" yaml:"malformed,omitempty"`
	Entries     []EntryDTO `json:"entries" yaml:"entries"`
}

// ConflictDTO is a number held by more than one record.
type ConflictDTO struct {
	Number      string      `json:"number" yaml:"number"`
	Domains     []string    `json:"domains" yaml:"domains"`
	Occurrences []RecordDTO `json:"occurrences" yaml:"occurrences"`
}

// CheckDTO is the result of a read-only conflict check.
type CheckDTO struct {
	Year        *int          `json:"year,omitempty" yaml:"year,omitempty"`
	Scanned     int           `json:"scanned" yaml:"scanned"`
	Unavailable []string      `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
	Conflicts   []ConflictDTO `json:"conflicts" yaml:"conflicts"`
}

// UnresolvedDTO is a conflict a pass could not repair.
type UnresolvedDTO struct {
	Number  string   `json:"number" yaml:"number"`
	Domains []string `json:"domains" yaml:"domains"`
	Reason  string   `json:"reason" yaml:"reason"`
}

// ReportDTO is the outcome of a resolution pass.
type ReportDTO struct {
	PassID        string                `json:"pass_id" yaml:"pass_id"`
	Mode          string                `json:"mode" yaml:"mode"`
	StartedAt     time.Time             `json:"started_at" yaml:"started_at"`
	ConflictCount int                   `json:"conflict_count" yaml:"conflict_count"`
	ResolvedCount int                   `json:"resolved_count" yaml:"resolved_count"`
	Clean         bool                  `json:"clean" yaml:"clean"`
	Aborted       bool                  `json:"aborted" yaml:"aborted"`
	Verified      bool                  `json:"verified" yaml:"verified"`
	Reassignments []domain.Reassignment `json:"reassignments" yaml:"reassignments"`
	Unresolved    []UnresolvedDTO       `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	Skipped       []ConflictDTO         `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Residual      []ConflictDTO         `json:"residual,omitempty" yaml:"residual,omitempty"`
	Unavailable   []string              `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
	Backups       []string              `json:"backups,omitempty" yaml:"backups,omitempty"`
}

// HistoryDTO is one journaled reassignment.
type HistoryDTO struct {
	PassID    string    `json:"pass_id" yaml:"pass_id"`
	Mode      string    `json:"mode" yaml:"mode"`
	AppliedAt time.Time `json:"applied_at" yaml:"applied_at"`
	Domain    string    `json:"domain" yaml:"domain"`
	RecordID  int64     `json:"record_id" yaml:"record_id"`
	OldNumber string    `json:"old_number" yaml:"old_number"`
	NewNumber string    `json:"new_number" yaml:"new_number"`
}

// FromRecord converts a domain record to a DTO.
func FromRecord(rec domain.NumberRecord) RecordDTO {
	return RecordDTO{
		Domain:    rec.Domain,
		RecordID:  rec.RecordID,
		Number:    rec.Number,
		Label:     rec.Label,
		CreatedAt: rec.CreatedAt,
		Malformed: rec.Malformed,
	}
}

func fromRecords(recs []domain.NumberRecord) []RecordDTO {
	out := make([]RecordDTO, len(recs))
	for i, rec := range recs {
		out[i] = FromRecord(rec)
	}
	return out
}

// FromRegistry converts a scan result to a DTO.
func FromRegistry(reg *registry.Registry) RegistryDTO {
	entries := reg.Entries()
	dto := RegistryDTO{
		Year:        reg.Year(),
		Count:       reg.Len(),
		Complete:    reg.Complete(),
		Unavailable: reg.Unavailable(),
		Malformed:   reg.Malformed(),
		Entries:     make([]EntryDTO, len(entries)),
	}
	for i, e := range entries {
		dto.Entries[i] = EntryDTO{Number: e.Number, Occurrences: fromRecords(e.Occurrences)}
	}
	return dto
}

// FromConflict converts a detected conflict to a DTO.
func FromConflict(c registry.Conflict) ConflictDTO {
	return ConflictDTO{
		Number:      c.Number,
		Domains:     c.Domains(),
		Occurrences: fromRecords(c.Occurrences),
	}
}

// FromConflicts converts a slice of conflicts; nil becomes an empty slice.
func FromConflicts(cs []registry.Conflict) []ConflictDTO {
	out := make([]ConflictDTO, len(cs))
	for i, c := range cs {
		out[i] = FromConflict(c)
	}
	return out
}

// FromCheck builds the check result for a scan and its conflicts.
func FromCheck(reg *registry.Registry, cs []registry.Conflict) CheckDTO {
	return CheckDTO{
		Year:        reg.Year(),
		Scanned:     reg.Len(),
		Unavailable: reg.Unavailable(),
		Conflicts:   FromConflicts(cs),
	}
}

// FromReport converts a resolution report to a DTO.
func FromReport(r *resolver.Report) ReportDTO {
	dto := ReportDTO{
		PassID:        r.PassID,
		Mode:          string(r.Mode),
		StartedAt:     r.StartedAt,
		ConflictCount: r.ConflictCount,
		ResolvedCount: r.ResolvedCount,
		Clean:         r.Clean(),
		Aborted:       r.Aborted,
		Verified:      r.Verified,
		Reassignments: append([]domain.Reassignment{}, r.Reassignments...),
		Unavailable:   r.Unavailable,
		Backups:       r.Backups,
	}
	for _, u := range r.Unresolved {
		dto.Unresolved = append(dto.Unresolved, UnresolvedDTO{
			Number:  u.Conflict.Number,
			Domains: u.Conflict.Domains(),
			Reason:  u.Reason,
		})
	}
	if len(r.Skipped) > 0 {
		dto.Skipped = FromConflicts(r.Skipped)
	}
	if len(r.Residual) > 0 {
		dto.Residual = FromConflicts(r.Residual)
	}
	return dto
}

// FromLedger converts journal entries to DTOs.
func FromLedger(entries []sqlite.LedgerEntry) []HistoryDTO {
	out := make([]HistoryDTO, len(entries))
	for i, e := range entries {
		out[i] = HistoryDTO{
			PassID:    e.PassID,
			Mode:      e.Mode,
			AppliedAt: e.AppliedAt,
			Domain:    e.Domain,
			RecordID:  e.RecordID,
			OldNumber: e.OldNumber,
			NewNumber: e.NewNumber,
		}
	}
	return out
}
