// Package allocator hands out the next document number of a domain.
//
// Numbers are re-derived from a fresh scan on every call; there is no cached
// counter. Two concurrent callers can therefore be handed the same number, and
// the per-domain unique index turns that race into a ConstraintViolation the
// caller retries (see Facade.Issue).
package allocator

import (
	"context"

	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
)

// Next returns the number following the highest well-formed sequence of the
// series in reg, skipping any candidate whose exact string is already held.
func Next(reg *registry.Registry, prefix string, year int) string {
	seq := reg.MaxSequence(prefix, year) + 1
	for {
		candidate := domain.FormatNumber(prefix, year, seq)
		if !reg.Contains(candidate) {
			return candidate
		}
		seq++
	}
}

// Global computes the next number over the union of every domain.
func Global(ctx context.Context, scanner *registry.Scanner, desc domain.DomainDescriptor, year int) (string, *registry.Registry, error) {
	reg, err := scanner.Scan(ctx, &year)
	if err != nil {
		return "", reg, err
	}
	return Next(reg, desc.Prefix, year), reg, nil
}

// Local computes the next number from the calling domain's own records only.
// The result cannot be guaranteed unique across domains.
func Local(ctx context.Context, store domain.Store, year int) (string, error) {
	records, err := store.ListNumbers(ctx)
	if err != nil {
		return "", err
	}
	reg := registry.New()
	for _, rec := range records {
		reg.Add(rec)
	}
	return Next(reg, store.Descriptor().Prefix, year), nil
}
