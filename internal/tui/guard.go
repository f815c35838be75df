package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/siba-ai/siba-chat/internal/session"
)

// LoginRequiredMsg is emitted once each time a guard finds the session
// missing. Visit identifies the guard, so a request from a page the user
// already left can be dropped.
type LoginRequiredMsg struct {
	Visit int
}

// GuardModel shields a protected page. It shows a placeholder while the
// session is being checked and asks for the login modal once each time the
// session turns out to be missing.
type GuardModel struct {
	gate    *session.Gate
	spinner spinner.Model
	visit   int
}

func NewGuardModel(visit int) GuardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = subtitleStyle

	return GuardModel{
		gate:    session.NewGate(),
		spinner: s,
		visit:   visit,
	}
}

func (g GuardModel) Init() tea.Cmd {
	return g.spinner.Tick
}

// State is the last observed guard state.
func (g GuardModel) State() session.GuardState {
	return g.gate.State()
}

func (g GuardModel) Update(msg tea.Msg) (GuardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		prev := g.gate.State()
		state, openLogin := g.gate.Observe(msg.Snapshot)
		if state == session.Checking && prev != session.Checking {
			return g, g.spinner.Tick
		}
		if openLogin {
			visit := g.visit
			return g, func() tea.Msg {
				return LoginRequiredMsg{Visit: visit}
			}
		}
		return g, nil

	case spinner.TickMsg:
		if g.gate.State() != session.Checking {
			return g, nil
		}
		var cmd tea.Cmd
		g.spinner, cmd = g.spinner.Update(msg)
		return g, cmd
	}
	return g, nil
}

// View renders children only when a session is present.
func (g GuardModel) View(children func() string) string {
	switch g.gate.State() {
	case session.Authenticated:
		return children()
	case session.Unauthenticated:
		return "Sign in required.\n" + helpStyle.Render("ctrl+l Log in")
	default:
		return g.spinner.View() + " Checking your session…"
	}
}
