package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/siba-ai/siba-chat/internal/session"
)

// Routes the application can show.
const (
	RouteHome      = "home"
	RouteDashboard = "dashboard"
)

// SnapshotMsg carries a new session snapshot into the program.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// NavigateMsg switches the visible page.
type NavigateMsg struct {
	Route string
}

// OpenLoginMsg shows the login modal.
type OpenLoginMsg struct{}

// CloseLoginMsg hides the login modal.
type CloseLoginMsg struct{}

// Bridge turns calls made outside the event loop (navigation from the logout
// coordinator, modal requests through the session manager) into messages.
// It implements session.Navigator and session.ModalController.
type Bridge struct {
	msgs chan tea.Msg
}

func NewBridge() *Bridge {
	return &Bridge{msgs: make(chan tea.Msg, 16)}
}

func (b *Bridge) Navigate(route string) { b.msgs <- NavigateMsg{Route: route} }
func (b *Bridge) OpenLoginModal()       { b.msgs <- OpenLoginMsg{} }
func (b *Bridge) CloseLoginModal()      { b.msgs <- CloseLoginMsg{} }

// bridgeMsg wraps a message that came through the bridge, so the app knows
// to listen again after handling it.
type bridgeMsg struct {
	msg tea.Msg
}

// Listen waits for the next message. Re-issue it after every delivery.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		return bridgeMsg{msg: <-b.msgs}
	}
}

// waitForSnapshot delivers the next snapshot from a store subscription. It
// returns nil once the subscription is cancelled.
func waitForSnapshot(ch <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}
