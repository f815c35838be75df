package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/siba-ai/siba-chat/internal/session"
)

// HomePageKeyMap holds key bindings for the landing page actions
type HomePageKeyMap struct {
	login     key.Binding
	dashboard key.Binding
}

func newHomePageKeyMap() *HomePageKeyMap {
	return &HomePageKeyMap{
		login: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "Log in"),
		),
		dashboard: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Dashboard"),
		),
	}
}

// HomePageModel is the public landing page. Anyone can chat here; signing
// in unlocks the dashboard.
type HomePageModel struct {
	keys  *HomePageKeyMap
	chat  ChatPage
	modal session.ModalController
	user  *session.Session
	width int
}

// NewHomePageModel creates the landing page
func NewHomePageModel(modal session.ModalController, replyDelay time.Duration) HomePageModel {
	return HomePageModel{
		keys:  newHomePageKeyMap(),
		chat:  NewChatPage(RouteHome, "SIBA AI ASSISTANT", replyDelay),
		modal: modal,
	}
}

func (m HomePageModel) Init() tea.Cmd {
	return m.chat.Init()
}

func (m HomePageModel) Update(msg tea.Msg) (HomePageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.login):
			modal := m.modal
			return m, func() tea.Msg {
				modal.OpenLoginModal()
				return nil
			}
		case key.Matches(msg, m.keys.dashboard):
			return m, navigate(RouteDashboard)
		}

	case SnapshotMsg:
		m.user = msg.Snapshot.Session
		name := ""
		if m.user != nil {
			name = m.user.Name()
		}
		m.chat = m.chat.SetAuthor(name)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		// one row for the header
		msg.Height--
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

// View renders the landing page
func (m HomePageModel) View() string {
	account := helpStyle.Render("ctrl+l Log in")
	if m.user != nil {
		account = helpStyle.Render("Signed in as "+m.user.Name()) + "  " + helpStyle.Render("ctrl+d Dashboard")
	}

	header := titleStyle.Render("SIBA AI ASSISTANT")
	gap := max(1, m.width-lipgloss.Width(header)-lipgloss.Width(account))
	bar := lipgloss.JoinHorizontal(lipgloss.Top, header, lipgloss.NewStyle().Width(gap).Render(""), account)

	return lipgloss.JoinVertical(lipgloss.Left, bar, m.chat.View())
}
