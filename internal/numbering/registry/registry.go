// Package registry builds the global view of every number across all domains
// and detects numbers held by more than one record.
//
// A Registry is built fresh by each Scan and owned by the caller for the
// duration of one allocation or resolution pass. It is never cached: domain
// stores are written concurrently by ordinary document creation.
package registry

import (
	"errors"
	"sort"

	"github.com/quoteworks/docnum/internal/numbering/domain"
)

// Registry maps each number to its occurrences in scan order.
// Occurrences are never deduplicated so conflicts stay visible.
type Registry struct {
	entries     map[string][]domain.NumberRecord
	keys        []string
	records     []domain.NumberRecord
	unavailable []string
	year        *int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string][]domain.NumberRecord)}
}

// Add appends one occurrence.
func (r *Registry) Add(rec domain.NumberRecord) {
	if _, ok := r.entries[rec.Number]; !ok {
		r.keys = append(r.keys, rec.Number)
	}
	r.entries[rec.Number] = append(r.entries[rec.Number], rec)
	r.records = append(r.records, rec)
}

// MarkUnavailable records a domain that could not be read during the scan.
func (r *Registry) MarkUnavailable(domainName string) {
	r.unavailable = append(r.unavailable, domainName)
}

// Unavailable returns the domains that could not be read, in descriptor order.
func (r *Registry) Unavailable() []string {
	return append([]string(nil), r.unavailable...)
}

// Complete reports whether every domain was read.
func (r *Registry) Complete() bool {
	return len(r.unavailable) == 0
}

// IsUnavailable reports whether the named domain could not be read.
func (r *Registry) IsUnavailable(domainName string) bool {
	for _, name := range r.unavailable {
		if name == domainName {
			return true
		}
	}
	return false
}

// Year returns the year filter the registry was scanned with, or nil.
func (r *Registry) Year() *int {
	return r.year
}

// Contains reports whether any record holds number.
func (r *Registry) Contains(number string) bool {
	_, ok := r.entries[number]
	return ok
}

// Occurrences returns the records holding number, in scan order.
func (r *Registry) Occurrences(number string) []domain.NumberRecord {
	return append([]domain.NumberRecord(nil), r.entries[number]...)
}

// Numbers returns the distinct numbers in first-seen order.
func (r *Registry) Numbers() []string {
	return append([]string(nil), r.keys...)
}

// Records returns every occurrence in scan order.
func (r *Registry) Records() []domain.NumberRecord {
	return append([]domain.NumberRecord(nil), r.records...)
}

// Len returns the number of distinct numbers.
func (r *Registry) Len() int {
	return len(r.keys)
}

// MaxSequence returns the highest sequence among well-formed numbers of the
// given series and year, or 0 when there is none. Malformed suffixes are skipped.
func (r *Registry) MaxSequence(prefix string, year int) int {
	maxSeq := 0
	for _, number := range r.keys {
		seq, ok, err := domain.ParseSequence(number, prefix, year)
		if err != nil || !ok {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq
}

// Malformed returns the distinct numbers flagged malformed by their domain, sorted.
func (r *Registry) Malformed() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range r.records {
		if rec.Malformed && !seen[rec.Number] {
			seen[rec.Number] = true
			out = append(out, rec.Number)
		}
	}
	sort.Strings(out)
	return out
}

// Entry is one registry key with its occurrences.
type Entry struct {
	Number      string                `json:"number" yaml:"number"`
	Occurrences []domain.NumberRecord `json:"occurrences" yaml:"occurrences"`
}

// Entries returns every key with its occurrences, sorted by number.
func (r *Registry) Entries() []Entry {
	keys := r.Numbers()
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Number: k, Occurrences: r.Occurrences(k)})
	}
	return out
}

// Conflict is a number held by more than one record.
type Conflict struct {
	Number      string                `json:"number" yaml:"number"`
	Occurrences []domain.NumberRecord `json:"occurrences" yaml:"occurrences"`
}

// Domains returns the distinct domains involved, in scan order.
func (c Conflict) Domains() []string {
	var out []string
	seen := make(map[string]bool)
	for _, occ := range c.Occurrences {
		if !seen[occ.Domain] {
			seen[occ.Domain] = true
			out = append(out, occ.Domain)
		}
	}
	return out
}

// Detect returns every entry with more than one occurrence, sorted by number.
// It has no side effects.
func Detect(r *Registry) []Conflict {
	if r == nil {
		return nil
	}
	var conflicts []Conflict
	for _, number := range r.keys {
		occ := r.entries[number]
		if len(occ) > 1 {
			conflicts = append(conflicts, Conflict{
				Number:      number,
				Occurrences: append([]domain.NumberRecord(nil), occ...),
			})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].Number < conflicts[j].Number
	})
	return conflicts
}

// IsNoReachableDomain reports whether err means no domain could be scanned.
func IsNoReachableDomain(err error) bool {
	return errors.Is(err, domain.ErrNoReachableDomain)
}
