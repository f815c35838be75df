package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/siba-ai/siba-chat/internal/auth/completion"
	"github.com/siba-ai/siba-chat/internal/auth/initiator"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/logger"
	"github.com/siba-ai/siba-chat/internal/session"
	"go.uber.org/zap"
)

const (
	panelWidth = 52

	prepareTimeout = 10 * time.Second
	requestTimeout = 10 * time.Second
)

const (
	msgProviderUnavailable = "Google sign-in is unavailable right now. Please try again."
	msgNotConfigured       = "Google sign-in is not configured for this app."
	msgRedirectFailed      = "Could not open the sign-in page. Please try again."
	msgWaiting             = "Finish signing in in your browser…"
	msgConfirming          = "Signing you in…"
	msgTimedOut            = "Sign-in timed out. Please try again."
	msgClaimFailed         = "Sign-in failed. Please try again."
	msgNotConfirmed        = "Sign-in could not be confirmed. Please try again."
)

// Redirector starts and abandons sign-in redirects.
type Redirector interface {
	Prepare(ctx context.Context) error
	BeginRedirect(ctx context.Context, loginHint string) (*initiator.PendingAuthorization, error)
	Reset()
}

// Claimer completes a redirect once the browser is done with it.
type Claimer interface {
	Claim(ctx context.Context, pending *initiator.PendingAuthorization) error
	Finish(ctx context.Context) session.Snapshot
	Timeout() time.Duration
	Interval() time.Duration
}

type providerReadyMsg struct{ err error }

type redirectMsg struct {
	pending *initiator.PendingAuthorization
	err     error
}

type claimTickMsg struct{ state string }

type claimResultMsg struct {
	state string
	err   error
}

type signedInMsg struct {
	state    string
	snapshot session.Snapshot
}

type loginKeyMap struct {
	google key.Binding
	submit key.Binding
	close  key.Binding
}

func newLoginKeyMap() *loginKeyMap {
	return &loginKeyMap{
		google: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "Continue with Google"),
		),
		submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Continue"),
		),
		close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close"),
		),
	}
}

// rect is a screen region in cells.
type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

type panelLayout struct {
	panel       rect
	googleRow   int
	continueRow int
}

// LoginModal is the sign-in dialog drawn over the current page. Everything
// outside the panel is backdrop.
type LoginModal struct {
	keys       *loginKeyMap
	input      textinput.Model
	domain     domain.Domain
	redirector Redirector
	claimer    Claimer
	now        func() time.Time

	valid       bool
	err         string
	status      string
	redirecting bool
	pending     *initiator.PendingAuthorization
	deadline    time.Time

	width  int
	height int
}

func NewLoginModal(d domain.Domain, r Redirector, c Claimer) LoginModal {
	ti := textinput.New()
	ti.Placeholder = "Enter your IBA Email Address"
	ti.CharLimit = 254
	ti.Width = panelWidth - 8

	return LoginModal{
		keys:       newLoginKeyMap(),
		input:      ti,
		domain:     d,
		redirector: r,
		claimer:    c,
		now:        time.Now,
	}
}

// Open starts a fresh activation and begins loading the provider.
func (m LoginModal) Open() (LoginModal, tea.Cmd) {
	m = m.cleared()
	focus := m.input.Focus()

	r := m.redirector
	prepare := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), prepareTimeout)
		defer cancel()
		return providerReadyMsg{err: r.Prepare(ctx)}
	}
	return m, tea.Batch(focus, textinput.Blink, prepare)
}

// Close ends the activation. A redirect still waiting for the browser is
// abandoned; its late results no longer match.
func (m LoginModal) Close() LoginModal {
	m.redirector.Reset()
	m = m.cleared()
	m.input.Blur()
	return m
}

func (m LoginModal) cleared() LoginModal {
	m.input.Reset()
	m.valid = false
	m.err = ""
	m.status = ""
	m.redirecting = false
	m.pending = nil
	m.deadline = time.Time{}
	return m
}

// Valid reports whether the entered email belongs to the institution.
func (m LoginModal) Valid() bool {
	return m.valid
}

// Err returns the inline error, if any.
func (m LoginModal) Err() string {
	return m.err
}

// Status returns the progress line, if any.
func (m LoginModal) Status() string {
	return m.status
}

// Pending returns the redirect waiting for the browser, or nil.
func (m LoginModal) Pending() *initiator.PendingAuthorization {
	return m.pending
}

func (m LoginModal) Update(msg tea.Msg) (LoginModal, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.close):
			return m, closeLogin
		case key.Matches(msg, m.keys.google):
			return m.continueWithGoogle()
		case key.Matches(msg, m.keys.submit):
			return m.submit()
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.valid = m.domain.IsInstitutional(m.input.Value())
		return m, cmd

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		layout := m.layout()
		if !layout.panel.contains(msg.X, msg.Y) {
			return m, closeLogin
		}
		switch msg.Y {
		case layout.googleRow:
			return m.continueWithGoogle()
		case layout.continueRow:
			// a disabled button does not submit
			if m.valid {
				return m.submit()
			}
		}
		return m, nil

	case providerReadyMsg:
		if msg.err != nil {
			logger.Warn("Sign-in provider not ready", zap.Error(msg.err))
		}
		return m, nil

	case redirectMsg:
		return m.redirected(msg)

	case claimTickMsg:
		if m.pending == nil || msg.state != m.pending.State {
			return m, nil
		}
		return m, m.claim(m.pending)

	case claimResultMsg:
		return m.claimed(msg)

	case signedInMsg:
		if m.pending == nil || msg.state != m.pending.State {
			return m, nil
		}
		m.pending = nil
		if !msg.snapshot.Authenticated() {
			m.status = ""
			m.err = msgNotConfirmed
			return m, nil
		}
		return m, tea.Batch(closeLogin, navigate(RouteDashboard))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// continueWithGoogle always redirects without a hint.
func (m LoginModal) continueWithGoogle() (LoginModal, tea.Cmd) {
	m.err = ""
	return m.redirect("")
}

func (m LoginModal) submit() (LoginModal, tea.Cmd) {
	value := m.input.Value()
	if !m.domain.IsInstitutional(value) {
		m.err = m.domain.ValidationMessage()
		return m, nil
	}
	m.err = ""
	return m.redirect(domain.NormalizeHint(value))
}

func (m LoginModal) redirect(hint string) (LoginModal, tea.Cmd) {
	if m.redirecting {
		return m, nil
	}
	m.redirecting = true
	m.status = ""

	r := m.redirector
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), prepareTimeout)
		defer cancel()
		pending, err := r.BeginRedirect(ctx, hint)
		return redirectMsg{pending: pending, err: err}
	}
}

func (m LoginModal) redirected(msg redirectMsg) (LoginModal, tea.Cmd) {
	m.redirecting = false
	if msg.err != nil {
		logger.Warn("Sign-in redirect not started", zap.Error(msg.err))
		m.status = ""
		switch {
		case errors.Is(msg.err, initiator.ErrProviderUnavailable):
			m.err = msgProviderUnavailable
		case errors.Is(msg.err, initiator.ErrNotConfigured):
			m.err = msgNotConfigured
		default:
			m.err = msgRedirectFailed
		}
		return m, nil
	}

	m.pending = msg.pending
	m.deadline = m.now().Add(m.claimer.Timeout())
	m.status = msgWaiting
	return m, m.tick(msg.pending.State)
}

func (m LoginModal) tick(state string) tea.Cmd {
	return tea.Tick(m.claimer.Interval(), func(time.Time) tea.Msg {
		return claimTickMsg{state: state}
	})
}

func (m LoginModal) claim(pending *initiator.PendingAuthorization) tea.Cmd {
	c := m.claimer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return claimResultMsg{state: pending.State, err: c.Claim(ctx, pending)}
	}
}

func (m LoginModal) claimed(msg claimResultMsg) (LoginModal, tea.Cmd) {
	if m.pending == nil || msg.state != m.pending.State {
		return m, nil
	}

	switch {
	case msg.err == nil:
		m.status = msgConfirming
		c := m.claimer
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return signedInMsg{state: msg.state, snapshot: c.Finish(ctx)}
		}
	case errors.Is(msg.err, completion.ErrHandoffPending):
		if !m.now().Before(m.deadline) {
			m.pending = nil
			m.status = ""
			m.err = msgTimedOut
			return m, nil
		}
		return m, m.tick(msg.state)
	default:
		logger.Warn("Sign-in claim failed", zap.Error(msg.err))
		m.pending = nil
		m.status = ""
		m.err = msgClaimFailed
		return m, nil
	}
}

// HitPanel reports whether the cell at x, y belongs to the dialog panel
// rather than the backdrop.
func (m LoginModal) HitPanel(x, y int) bool {
	return m.layout().panel.contains(x, y)
}

func (m LoginModal) layout() panelLayout {
	_, layout := m.render()
	return layout
}

func (m LoginModal) render() (string, panelLayout) {
	var rows []string
	offset := 0
	add := func(s string) int {
		at := offset
		rows = append(rows, s)
		offset += lipgloss.Height(s)
		return at
	}

	inner := panelWidth - panelStyle.GetHorizontalPadding()
	center := lipgloss.NewStyle().Width(inner).Align(lipgloss.Center)

	add(center.Render(lipgloss.NewStyle().Bold(true).Render("Log in or Sign up")))
	add(center.Render(subtitleStyle.Render("Get smarter answers and access personalized features.")))
	add("")
	googleAt := add(center.Render(buttonStyle.Render("G  Continue with Google (IBA Domain)")))
	add(center.Render(subtitleStyle.Render("───────────  or  ───────────")))
	add(m.input.View())
	// the error line is always reserved so the buttons do not move
	add(errorStyle.Render(m.err))
	button := disabledButtonStyle
	if m.valid {
		button = primaryButtonStyle
	}
	continueAt := add(center.Render(button.Render("Continue")))
	add("")
	if m.status != "" {
		add(center.Render(statusMessageStyle(m.status)))
	} else {
		add(center.Render(subtitleStyle.Render("Only IBA institutional users can access internal features.")))
	}

	panel := panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	w, h := lipgloss.Width(panel), lipgloss.Height(panel)
	x := max(0, (m.width-w)/2)
	y := max(0, (m.height-h)/2)
	top := y + panelStyle.GetBorderTopSize() + panelStyle.GetPaddingTop()

	return panel, panelLayout{
		panel:       rect{x: x, y: y, w: w, h: h},
		googleRow:   top + googleAt,
		continueRow: top + continueAt,
	}
}

// View draws the panel centred on a blank backdrop.
func (m LoginModal) View() string {
	panel, layout := m.render()
	return strings.Repeat("\n", layout.panel.y) +
		lipgloss.NewStyle().MarginLeft(layout.panel.x).Render(panel)
}

func closeLogin() tea.Msg {
	return CloseLoginMsg{}
}

func navigate(route string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Route: route}
	}
}
