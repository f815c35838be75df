package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/siba-ai/siba-chat/internal/session"
)

const pageExport = "export"

// AppModel is the main application model that manages page switching and
// draws the login modal over whichever page is active
type AppModel struct {
	manager   *session.Manager
	bridge    *Bridge
	snapshots <-chan session.Snapshot
	stop      func()

	quit       key.Binding
	home       HomePageModel
	dashboard  DashboardModel
	login      LoginModal
	exportView ExportView

	page      string
	returnTo  string
	modalOpen bool
	size      tea.WindowSizeMsg
}

// NewAppModel wires the pages to the session manager. The bridge must be the
// manager's modal controller and the logout navigator.
func NewAppModel(manager *session.Manager, bridge *Bridge, login LoginModal, replyDelay time.Duration) AppModel {
	snapshots, stop := manager.Subscribe()
	return AppModel{
		manager:   manager,
		bridge:    bridge,
		snapshots: snapshots,
		stop:      stop,
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
		home:      NewHomePageModel(manager, replyDelay),
		dashboard: NewDashboardModel(manager, replyDelay),
		login:     login,
		page:      RouteHome,
	}
}

// Init hydrates the session once and starts listening for snapshots and
// bridge calls.
func (m AppModel) Init() tea.Cmd {
	manager := m.manager
	hydrate := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		manager.Hydrate(ctx)
		return nil
	}
	return tea.Batch(
		hydrate,
		waitForSnapshot(m.snapshots),
		m.bridge.Listen(),
		m.home.Init(),
	)
}

// Update handles app-level messages and delegates to the modal or the active page
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bridgeMsg:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, m.bridge.Listen())

	case SnapshotMsg:
		var homeCmd, dashCmd tea.Cmd
		m.home, homeCmd = m.home.Update(msg)
		if m.page == RouteDashboard {
			m.dashboard, dashCmd = m.dashboard.Update(msg)
		}
		return m, tea.Batch(homeCmd, dashCmd, waitForSnapshot(m.snapshots))

	case NavigateMsg:
		return m.navigate(msg.Route)

	case LoginRequiredMsg:
		if m.page != RouteDashboard || msg.Visit != m.dashboard.Visit() {
			return m, nil
		}
		return m.Update(OpenLoginMsg{})

	case OpenLoginMsg:
		if m.modalOpen {
			return m, nil
		}
		m.modalOpen = true
		var cmd tea.Cmd
		m.login, cmd = m.login.Open()
		return m, cmd

	case CloseLoginMsg:
		if !m.modalOpen {
			return m, nil
		}
		m.modalOpen = false
		m.login = m.login.Close()
		return m, nil

	case OpenExportMsg:
		m.returnTo = m.page
		m.page = pageExport
		m.exportView = NewExportView(msg.Transcript)
		m.exportView, _ = m.exportView.Update(m.size)
		return m, m.exportView.Init()

	case BackToChatMsg:
		if m.page == pageExport {
			m.page = m.returnTo
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.size = msg
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.home, cmd = m.home.Update(msg)
		cmds = append(cmds, cmd)
		m.dashboard, cmd = m.dashboard.Update(msg)
		cmds = append(cmds, cmd)
		m.login, cmd = m.login.Update(msg)
		cmds = append(cmds, cmd)
		m.exportView, cmd = m.exportView.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if key.Matches(msg, m.quit) {
			m.stop()
			return m, tea.Quit
		}
		if m.modalOpen {
			var cmd tea.Cmd
			m.login, cmd = m.login.Update(msg)
			return m, cmd
		}
		return m.updatePage(msg)

	case tea.MouseMsg:
		if m.modalOpen {
			var cmd tea.Cmd
			m.login, cmd = m.login.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	// Async results find their owner by type and state, so everyone sees them
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.login, cmd = m.login.Update(msg)
	cmds = append(cmds, cmd)
	m.home, cmd = m.home.Update(msg)
	cmds = append(cmds, cmd)
	m.dashboard, cmd = m.dashboard.Update(msg)
	cmds = append(cmds, cmd)
	if m.page == pageExport {
		m.exportView, cmd = m.exportView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m AppModel) updatePage(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.page {
	case RouteDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case pageExport:
		m.exportView, cmd = m.exportView.Update(msg)
	default:
		m.home, cmd = m.home.Update(msg)
	}
	return m, cmd
}

// navigate behaves like a full page load: the modal does not survive it.
func (m AppModel) navigate(route string) (tea.Model, tea.Cmd) {
	if m.modalOpen {
		m.modalOpen = false
		m.login = m.login.Close()
	}
	switch route {
	case RouteDashboard:
		m.page = RouteDashboard
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Enter(m.manager.Snapshot())
		return m, cmd
	default:
		// any public route lands on the home page
		m.page = RouteHome
		return m, nil
	}
}

// Page returns the active page.
func (m AppModel) Page() string {
	return m.page
}

// ModalOpen reports whether the login modal is showing.
func (m AppModel) ModalOpen() bool {
	return m.modalOpen
}

// View renders the modal when it is open, otherwise the active page
func (m AppModel) View() string {
	if m.modalOpen {
		return m.login.View()
	}
	switch m.page {
	case RouteDashboard:
		return m.dashboard.View()
	case pageExport:
		return m.exportView.View()
	default:
		return m.home.View()
	}
}
