package resolver

import (
	"context"

	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
)

// Decision is the operator's answer to a Proposal.
type Decision int

const (
	// Accept applies the proposal.
	Accept Decision = iota
	// Skip leaves the conflict untouched and moves on.
	Skip
	// Abort stops the pass; reassignments already applied stay applied.
	Abort
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Proposal is what an interactive pass would do for one conflict.
type Proposal struct {
	Conflict registry.Conflict
	Keeper   domain.NumberRecord
	Losers   []domain.NumberRecord

	// Index and Total locate the conflict within the pass (1-based).
	Index int
	Total int
}

// Decider answers proposals synchronously. Returning an error aborts the pass.
type Decider interface {
	Decide(ctx context.Context, p Proposal) (Decision, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, p Proposal) (Decision, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, p Proposal) (Decision, error) {
	return f(ctx, p)
}

// AcceptAll accepts every proposal.
var AcceptAll Decider = DeciderFunc(func(context.Context, Proposal) (Decision, error) {
	return Accept, nil
})
