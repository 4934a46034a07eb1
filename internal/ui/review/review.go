// Package review provides the terminal prompt used by interactive resolution
// passes: one proposal per screen, answered with a single key.
package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quoteworks/docnum/internal/keys"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/resolver"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#54A0FF")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	keeperStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F"))
	loserStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FECA57"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
)

// Model is the review prompt state for one proposal.
type Model struct {
	proposal   resolver.Proposal
	keys       keys.ReviewKeyMap
	help       help.Model
	decision   resolver.Decision
	decided    bool
	acceptRest bool
	width      int
}

// New creates a prompt for the given proposal.
func New(p resolver.Proposal) Model {
	return Model{
		proposal: p,
		keys:     keys.DefaultReviewKeyMap(),
		help:     help.New(),
		decision: resolver.Abort,
	}
}

// Decision returns the operator's answer and whether one was given.
func (m Model) Decision() (resolver.Decision, bool) {
	return m.decision, m.decided
}

// AcceptRest reports whether the operator chose to accept every remaining proposal.
func (m Model) AcceptRest() bool {
	return m.acceptRest
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Accept):
			return m.decide(resolver.Accept)
		case key.Matches(msg, m.keys.AcceptAll):
			m.acceptRest = true
			return m.decide(resolver.Accept)
		case key.Matches(msg, m.keys.Skip):
			return m.decide(resolver.Skip)
		case key.Matches(msg, m.keys.Abort):
			return m.decide(resolver.Abort)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}
	return m, nil
}

func (m Model) decide(d resolver.Decision) (tea.Model, tea.Cmd) {
	m.decision = d
	m.decided = true
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if m.decided {
		return ""
	}
	p := m.proposal

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Conflict %d/%d: %s", p.Index, p.Total, p.Conflict.Number)))
	b.WriteString("\n\n")
	b.WriteString(keeperStyle.Render("keep      " + describe(p.Keeper)))
	for _, l := range p.Losers {
		b.WriteString("\n")
		b.WriteString(loserStyle.Render("renumber  " + describe(l)))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))

	box := boxStyle
	if m.width > 4 {
		box = box.MaxWidth(m.width)
	}
	return box.Render(b.String()) + "\n"
}

func describe(r domain.NumberRecord) string {
	s := fmt.Sprintf("%s #%d", r.Domain, r.RecordID)
	if r.Label != "" {
		s += "  " + r.Label
	}
	if r.HasTimestamp() {
		s += mutedStyle.Render("  " + r.CreatedAt.Format("2006-01-02 15:04"))
	} else {
		s += mutedStyle.Render("  no timestamp")
	}
	return s
}
