package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/siba-ai/siba-chat/internal/auth/completion"
	"github.com/siba-ai/siba-chat/internal/auth/initiator"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/requester"
	"github.com/siba-ai/siba-chat/internal/session"
)

var testDomain = domain.MustNew("iba-suk.edu.pk", "@iba-suk.edu.pk")

// cmdWait bounds how long collect waits for one command. Cursor blinks and
// similar timers take longer and are dropped.
const cmdWait = 100 * time.Millisecond

type fakeRedirector struct {
	mu       sync.Mutex
	err      error
	prepared int
	resets   int
	hints    []string
}

func (f *fakeRedirector) Prepare(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepared++
	return nil
}

func (f *fakeRedirector) BeginRedirect(_ context.Context, hint string) (*initiator.PendingAuthorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hints = append(f.hints, hint)
	if f.err != nil {
		return nil, f.err
	}
	return &initiator.PendingAuthorization{
		State:     fmt.Sprintf("state-%d", len(f.hints)),
		LoginHint: hint,
	}, nil
}

func (f *fakeRedirector) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeRedirector) Hints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hints...)
}

func (f *fakeRedirector) Prepared() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prepared
}

func (f *fakeRedirector) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

// fakeClaimer answers claims from a script; once the script runs out every
// claim is pending.
type fakeClaimer struct {
	mu       sync.Mutex
	results  []error
	claims   []string
	finish   func(ctx context.Context) session.Snapshot
	timeout  time.Duration
	interval time.Duration
}

func newFakeClaimer(results ...error) *fakeClaimer {
	return &fakeClaimer{
		results:  results,
		timeout:  time.Minute,
		interval: time.Millisecond,
		finish: func(context.Context) session.Snapshot {
			return session.Snapshot{Session: &session.Session{UserID: "u1", Email: "x@iba-suk.edu.pk"}, Loading: session.Settled}
		},
	}
}

func (f *fakeClaimer) Claim(_ context.Context, pending *initiator.PendingAuthorization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = append(f.claims, pending.State)
	if len(f.results) == 0 {
		return completion.ErrHandoffPending
	}
	err := f.results[0]
	f.results = f.results[1:]
	return err
}

func (f *fakeClaimer) Finish(ctx context.Context) session.Snapshot {
	return f.finish(ctx)
}

func (f *fakeClaimer) Timeout() time.Duration  { return f.timeout }
func (f *fakeClaimer) Interval() time.Duration { return f.interval }

func (f *fakeClaimer) Claims() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.claims...)
}

// fakeAPI serves the session endpoints from a swappable handler.
type fakeAPI struct {
	mu      sync.Mutex
	handler func(method, path string) (*requester.Response, error)
	calls   map[string]int
}

func newFakeAPI(h func(method, path string) (*requester.Response, error)) *fakeAPI {
	return &fakeAPI{handler: h, calls: make(map[string]int)}
}

func (f *fakeAPI) Do(_ context.Context, method, path string, _ interface{}) (*requester.Response, error) {
	f.mu.Lock()
	f.calls[method+" "+path]++
	h := f.handler
	f.mu.Unlock()
	return h(method, path)
}

func (f *fakeAPI) setHandler(h func(method, path string) (*requester.Response, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func sessionResponse(sess session.Session) func(string, string) (*requester.Response, error) {
	body, err := json.Marshal(sess)
	if err != nil {
		panic(err)
	}
	return func(string, string) (*requester.Response, error) {
		return &requester.Response{StatusCode: 200, Body: body}, nil
	}
}

func unauthorized(string, string) (*requester.Response, error) {
	return &requester.Response{StatusCode: 401}, nil
}

func newTestManager(api session.API, bridge *Bridge) *session.Manager {
	cfg := &config.ClientConfig{
		SessionCheckPath:       "/api/auth/me",
		SessionTerminationPath: "/api/auth/logout",
		LandingRoute:           RouteHome,
	}
	store := session.NewStore()
	h := session.NewHydrator(session.HydratorParams{
		Store:        store,
		API:          api,
		ClientConfig: cfg,
		Domain:       testDomain,
	})
	lc := session.NewLogoutCoordinator(session.LogoutParams{
		API:          api,
		ClientConfig: cfg,
		Hydrator:     h,
		Navigator:    bridge,
	})
	m := session.NewManager(session.ManagerParams{Store: store, Hydrator: h, Logout: lc})
	m.SetModalController(bridge)
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeInto(m LoginModal, s string) LoginModal {
	for _, r := range s {
		m, _ = m.Update(keyRunes(string(r)))
	}
	return m
}

// collect runs cmd and every command it batches, returning the messages
// produced within cmdWait each.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(cmdWait):
		return nil
	}

	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func isNoise(msg tea.Msg) bool {
	if _, ok := msg.(spinner.TickMsg); ok {
		return true
	}
	// cursor blinks
	return strings.Contains(fmt.Sprintf("%T", msg), "cursor.") ||
		strings.Contains(fmt.Sprintf("%T", msg), "textinput.")
}

// harness runs a tea.Model the way a program does: commands run in their
// own goroutines and their messages are fed back one at a time.
type harness struct {
	t     *testing.T
	model tea.Model
	msgs  chan tea.Msg
	views []string
}

func newHarness(t *testing.T, m tea.Model) *harness {
	h := &harness{t: t, model: m, msgs: make(chan tea.Msg, 256)}
	h.send(tea.WindowSizeMsg{Width: 100, Height: 40})
	h.run(m.Init())
	return h
}

func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				h.run(c)
			}
			return
		}
		if msg != nil && !isNoise(msg) {
			h.msgs <- msg
		}
	}()
}

func (h *harness) send(msg tea.Msg) {
	var cmd tea.Cmd
	h.model, cmd = h.model.Update(msg)
	h.views = append(h.views, h.model.View())
	h.run(cmd)
}

func (h *harness) app() AppModel {
	return h.model.(AppModel)
}

// waitFor feeds messages until cond holds.
func (h *harness) waitFor(what string, cond func(AppModel) bool) {
	h.t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond(h.app()) {
		select {
		case msg := <-h.msgs:
			h.send(msg)
		case <-deadline:
			h.t.Fatalf("timed out waiting for %s", what)
		}
	}
}
