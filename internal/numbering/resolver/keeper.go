package resolver

import (
	"github.com/quoteworks/docnum/internal/numbering/domain"
)

// SelectKeeper splits occurrences into the one kept and the ones renumbered.
//
// When every occurrence has a timestamp and exactly one is earliest, it is
// kept. Otherwise the candidates (the tied earliest, or all occurrences when
// any timestamp is missing) are ranked by priority; remaining ties go to the
// first candidate in scan order.
func SelectKeeper(occurrences []domain.NumberRecord, priority []string) (keeper domain.NumberRecord, losers []domain.NumberRecord) {
	if len(occurrences) == 0 {
		return domain.NumberRecord{}, nil
	}
	k := keeperIndex(occurrences, priority)
	for i, occ := range occurrences {
		if i != k {
			losers = append(losers, occ)
		}
	}
	return occurrences[k], losers
}

func keeperIndex(occ []domain.NumberRecord, priority []string) int {
	candidates := make([]int, 0, len(occ))
	allTimestamped := true
	for i, rec := range occ {
		candidates = append(candidates, i)
		if !rec.HasTimestamp() {
			allTimestamped = false
		}
	}

	if allTimestamped {
		earliest := *occ[0].CreatedAt
		for _, rec := range occ[1:] {
			if rec.CreatedAt.Before(earliest) {
				earliest = *rec.CreatedAt
			}
		}
		candidates = candidates[:0]
		for i, rec := range occ {
			if rec.CreatedAt.Equal(earliest) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 1 {
			return candidates[0]
		}
	}

	best, bestRank := candidates[0], rank(occ[candidates[0]].Domain, priority)
	for _, i := range candidates[1:] {
		if r := rank(occ[i].Domain, priority); r < bestRank {
			best, bestRank = i, r
		}
	}
	return best
}

// rank returns the position of name in priority, or len(priority) when absent.
func rank(name string, priority []string) int {
	for i, p := range priority {
		if p == name {
			return i
		}
	}
	return len(priority)
}
