// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// ReviewKeyMap defines the keybindings for reviewing a conflict proposal.
type ReviewKeyMap struct {
	Accept    key.Binding
	AcceptAll key.Binding
	Skip      key.Binding
	Abort     key.Binding
	Help      key.Binding
}

// DefaultReviewKeyMap returns the default review keybindings.
func DefaultReviewKeyMap() ReviewKeyMap {
	return ReviewKeyMap{
		Accept: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y/enter", "renumber"),
		),
		AcceptAll: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "renumber all remaining"),
		),
		Skip: key.NewBinding(
			key.WithKeys("n", "s"),
			key.WithHelp("n/s", "skip"),
		),
		Abort: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "abort pass"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns keybindings for the short help view.
func (k ReviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Skip, k.Abort, k.Help}
}

// FullHelp returns keybindings for the full help view.
func (k ReviewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Accept, k.AcceptAll},
		{k.Skip, k.Abort},
		{k.Help},
	}
}
