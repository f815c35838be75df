package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/siba-ai/siba-chat/internal/tui/models"
)

// newMessageDelegate returns a list.DefaultDelegate with custom update and help functions.
func newMessageDelegate(keys *delegateKeyMap) list.DefaultDelegate {
	d := list.NewDefaultDelegate()
	d.ShowDescription = true

	d.UpdateFunc = func(msg tea.Msg, m *list.Model) tea.Cmd {
		if _, ok := m.SelectedItem().(models.MessageItem); !ok {
			return nil
		}

		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch {
			case key.Matches(msg, keys.remove):
				m.RemoveItem(m.Index())
				return m.NewStatusMessage(statusMessageStyle("Removed message from the conversation"))
			}
		}
		return nil
	}

	help := []key.Binding{keys.remove}

	d.ShortHelpFunc = func() []key.Binding {
		return help
	}

	d.FullHelpFunc = func() [][]key.Binding {
		return [][]key.Binding{help}
	}

	return d
}

// delegateKeyMap holds key bindings for message actions.
type delegateKeyMap struct {
	remove key.Binding
}

// ShortHelp returns additional short help entries for the delegate.
func (d delegateKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		d.remove,
	}
}

// FullHelp returns additional full help entries for the delegate.
func (d delegateKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{
			d.remove,
		},
	}
}

// newDelegateKeyMap creates a new delegateKeyMap with default bindings.
func newDelegateKeyMap() *delegateKeyMap {
	return &delegateKeyMap{
		remove: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "Remove message"),
		),
	}
}
