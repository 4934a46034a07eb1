package resolver

import (
	"time"

	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
)

// Unresolved is a conflict the pass could not repair.
type Unresolved struct {
	Conflict registry.Conflict `json:"conflict" yaml:"conflict"`
	Reason   string            `json:"reason" yaml:"reason"`
}

// Report is the outcome of resolving a set of conflicts.
type Report struct {
	PassID    string    `json:"pass_id" yaml:"pass_id"`
	Mode      Mode      `json:"mode" yaml:"mode"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// ConflictCount is the number of conflicts handed to the pass.
	ConflictCount int `json:"conflict_count" yaml:"conflict_count"`

	// ResolvedCount counts conflicts whose losers were all renumbered
	// (or would be, in dry-run mode).
	ResolvedCount int `json:"resolved_count" yaml:"resolved_count"`

	Unresolved    []Unresolved          `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	Skipped       []registry.Conflict   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Reassignments []domain.Reassignment `json:"reassignments,omitempty" yaml:"reassignments,omitempty"`

	// Aborted is set when the pass stopped before handling every conflict.
	Aborted bool `json:"aborted" yaml:"aborted"`

	// Unavailable lists domains that could not be scanned.
	Unavailable []string `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`

	// Verified is set once a post-pass scan has been run; Residual lists the
	// conflicts it still found on numbers this pass resolved or minted.
	Verified bool                `json:"verified" yaml:"verified"`
	Residual []registry.Conflict `json:"residual,omitempty" yaml:"residual,omitempty"`

	// Backups lists the snapshot files written before the first write.
	Backups []string `json:"backups,omitempty" yaml:"backups,omitempty"`

	resolved []string
}

// Clean reports whether the pass left nothing to do.
func (r *Report) Clean() bool {
	return len(r.Unresolved) == 0 && len(r.Skipped) == 0 && len(r.Residual) == 0 && !r.Aborted
}

// ResolvedNumbers returns the conflicting numbers the pass resolved.
func (r *Report) ResolvedNumbers() []string {
	return append([]string(nil), r.resolved...)
}
