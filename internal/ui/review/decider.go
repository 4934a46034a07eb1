package review

import (
	"context"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/numbering/resolver"
)

// Decider asks the operator about each proposal with a Model prompt.
type Decider struct {
	in  io.Reader
	out io.Writer

	mu         sync.Mutex
	acceptRest bool
}

// Option configures a Decider.
type Option func(*Decider)

// WithInput reads keys from r instead of the terminal.
func WithInput(r io.Reader) Option {
	return func(d *Decider) { d.in = r }
}

// WithOutput renders to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(d *Decider) { d.out = w }
}

// NewDecider creates a terminal decider.
func NewDecider(opts ...Option) *Decider {
	d := &Decider{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decide implements resolver.Decider.
func (d *Decider) Decide(ctx context.Context, p resolver.Proposal) (resolver.Decision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.acceptRest {
		return resolver.Accept, nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if d.in != nil {
		opts = append(opts, tea.WithInput(d.in))
	}
	if d.out != nil {
		opts = append(opts, tea.WithOutput(d.out))
	}

	final, err := tea.NewProgram(New(p), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return resolver.Abort, ctx.Err()
		}
		return resolver.Abort, fmt.Errorf("running review prompt: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return resolver.Abort, fmt.Errorf("unexpected review model %T", final)
	}
	decision, decided := m.Decision()
	if !decided {
		return resolver.Abort, nil
	}
	if m.AcceptRest() {
		d.acceptRest = true
	}
	log.Debug(log.CatResolve, "Operator decision", "number", p.Conflict.Number, "decision", decision.String())
	return decision, nil
}
