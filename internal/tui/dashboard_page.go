package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/siba-ai/siba-chat/internal/session"
)

const logoutTimeout = 10 * time.Second

// Signer signs the user out.
type Signer interface {
	Logout(ctx context.Context) bool
}

type dashboardKeyMap struct {
	login  key.Binding
	logout key.Binding
	home   key.Binding
}

func newDashboardKeyMap() *dashboardKeyMap {
	return &dashboardKeyMap{
		login: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "Log in"),
		),
		logout: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "Log out"),
		),
		home: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("ctrl+b", "Home"),
		),
	}
}

// DashboardModel is the protected chat. Everything below the header sits
// behind the guard.
type DashboardModel struct {
	keys       *dashboardKeyMap
	guard      GuardModel
	chat       ChatPage
	signer     Signer
	visit      int
	user       *session.Session
	width      int
	loggingOut bool
}

func NewDashboardModel(signer Signer, replyDelay time.Duration) DashboardModel {
	return DashboardModel{
		keys:   newDashboardKeyMap(),
		guard:  NewGuardModel(0),
		chat:   NewChatPage(RouteDashboard, "SIBA AI ASSISTANT", replyDelay),
		signer: signer,
	}
}

// Enter starts a fresh guard for a new visit and feeds it the current
// snapshot. The conversation survives between visits.
func (m DashboardModel) Enter(snap session.Snapshot) (DashboardModel, tea.Cmd) {
	m.visit++
	m.guard = NewGuardModel(m.visit)
	m.loggingOut = false
	tick := m.guard.Init()

	var cmd tea.Cmd
	m, cmd = m.Update(SnapshotMsg{Snapshot: snap})
	return m, tea.Batch(tick, cmd)
}

// Visit identifies the current visit.
func (m DashboardModel) Visit() int {
	return m.visit
}

// GuardState is the state of the current visit's guard.
func (m DashboardModel) GuardState() session.GuardState {
	return m.guard.State()
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.user = msg.Snapshot.Session
		name := ""
		if m.user != nil {
			name = m.user.Name()
		}
		m.chat = m.chat.SetAuthor(name)

		var cmd tea.Cmd
		m.guard, cmd = m.guard.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.home):
			return m, navigate(RouteHome)
		case key.Matches(msg, m.keys.login):
			// reopens a dismissed modal; only a missing session may ask
			if m.guard.State() != session.Unauthenticated {
				return m, nil
			}
			visit := m.visit
			return m, func() tea.Msg {
				return LoginRequiredMsg{Visit: visit}
			}
		case key.Matches(msg, m.keys.logout):
			if m.loggingOut {
				return m, nil
			}
			m.loggingOut = true
			signer := m.signer
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
				defer cancel()
				signer.Logout(ctx)
				return nil
			}
		}
		if m.guard.State() != session.Authenticated {
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		msg.Height--
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.guard, cmd = m.guard.Update(msg)
	cmds = append(cmds, cmd)
	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the header and the guarded conversation.
func (m DashboardModel) View() string {
	header := titleStyle.Render("SIBA AI ASSISTANT")
	account := helpStyle.Render("ctrl+b Home")
	if m.user != nil {
		account = helpStyle.Render(m.user.Name()+" · "+m.user.Email) + "  " +
			helpStyle.Render("ctrl+o Log out") + "  " + account
	}
	gap := max(1, m.width-lipgloss.Width(header)-lipgloss.Width(account))
	bar := lipgloss.JoinHorizontal(lipgloss.Top, header, lipgloss.NewStyle().Width(gap).Render(""), account)

	body := m.guard.View(m.chat.View)
	return lipgloss.JoinVertical(lipgloss.Left, bar, body)
}
