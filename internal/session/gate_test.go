package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/siba-ai/siba-chat/internal/requester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want GuardState
	}{
		{"pending without session", Snapshot{Loading: Pending}, Checking},
		{"pending with session", Snapshot{Session: &alice, Loading: Pending}, Checking},
		{"settled without session", Snapshot{Loading: Settled}, Unauthenticated},
		{"settled with session", Snapshot{Session: &alice, Loading: Settled}, Authenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(tt.snap))
		})
	}
}

func TestGateOpensLoginOncePerEntry(t *testing.T) {
	g := NewGate()
	assert.Equal(t, Checking, g.State())

	steps := []struct {
		snap      Snapshot
		wantState GuardState
		wantOpen  bool
	}{
		{Snapshot{Loading: Pending}, Checking, false},
		{Snapshot{Loading: Settled}, Unauthenticated, true},
		{Snapshot{Loading: Settled}, Unauthenticated, false},
		{Snapshot{Loading: Pending}, Checking, false},
		{Snapshot{Loading: Settled}, Unauthenticated, true},
		{Snapshot{Session: &alice, Loading: Settled}, Authenticated, false},
		{Snapshot{Loading: Settled}, Unauthenticated, true},
	}
	for i, s := range steps {
		state, open := g.Observe(s.snap)
		assert.Equal(t, s.wantState, state, "step %d", i)
		assert.Equal(t, s.wantOpen, open, "step %d", i)
	}
}

type recordingModal struct {
	opens  atomic.Int32
	closes atomic.Int32
}

func (m *recordingModal) OpenLoginModal()  { m.opens.Add(1) }
func (m *recordingModal) CloseLoginModal() { m.closes.Add(1) }

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *routeRecorder) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

func newManager(api API, nav Navigator) *Manager {
	store, h := newHydrator(api)
	lc := NewLogoutCoordinator(LogoutParams{
		API:          api,
		ClientConfig: testClientConfig(),
		Hydrator:     h,
		Navigator:    nav,
	})
	return NewManager(ManagerParams{Store: store, Hydrator: h, Logout: lc})
}

func TestManagerModalForwarding(t *testing.T) {
	m := newManager(newFakeAPI(nil), nil)

	// no controller attached yet
	m.OpenLoginModal()
	m.CloseLoginModal()

	modal := &recordingModal{}
	m.SetModalController(modal)
	m.OpenLoginModal()
	m.OpenLoginModal()
	m.CloseLoginModal()

	assert.EqualValues(t, 2, modal.opens.Load())
	assert.EqualValues(t, 1, modal.closes.Load())
}

func TestLogoutClearsSessionEvenWhenServerFails(t *testing.T) {
	tests := []struct {
		name   string
		logout func() (*requester.Response, error)
	}{
		{"server accepts", func() (*requester.Response, error) {
			return &requester.Response{StatusCode: http.StatusOK}, nil
		}},
		{"server rejects", func() (*requester.Response, error) {
			return &requester.Response{StatusCode: http.StatusInternalServerError}, nil
		}},
		{"network down", func() (*requester.Response, error) {
			return nil, assert.AnError
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(func(method, path string) (*requester.Response, error) {
				if path == "/api/auth/logout" {
					return tt.logout()
				}
				return &requester.Response{StatusCode: http.StatusOK, Body: mustJSON(alice)}, nil
			})
			nav := &routeRecorder{}
			m := newManager(api, nav)

			m.Hydrate(context.Background())
			require.NotNil(t, m.User())

			assert.True(t, m.Logout(context.Background()))
			assert.Nil(t, m.User())
			assert.False(t, m.IsLoading())
			assert.Equal(t, []string{"home"}, nav.Routes())
			assert.Equal(t, 1, api.count("POST /api/auth/logout"))
		})
	}
}

type forgetfulJar struct {
	forgets atomic.Int32
}

func (j *forgetfulJar) Forget() error {
	j.forgets.Add(1)
	return nil
}

func TestLogoutForgetsLocalCredentials(t *testing.T) {
	api := newFakeAPI(func(method, path string) (*requester.Response, error) {
		if path == "/api/auth/logout" {
			return nil, assert.AnError
		}
		return &requester.Response{StatusCode: http.StatusOK, Body: mustJSON(alice)}, nil
	})
	store, h := newHydrator(api)
	jar := &forgetfulJar{}
	lc := NewLogoutCoordinator(LogoutParams{
		API:          api,
		ClientConfig: testClientConfig(),
		Hydrator:     h,
		Navigator:    &routeRecorder{},
		Credentials:  jar,
	})
	m := NewManager(ManagerParams{Store: store, Hydrator: h, Logout: lc})
	m.Hydrate(context.Background())

	// the server never heard about it, so the cookie must not survive locally
	assert.True(t, m.Logout(context.Background()))
	assert.EqualValues(t, 1, jar.forgets.Load())
	assert.Nil(t, m.User())
}

func TestConcurrentLogoutSendsOneRequest(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	api := newFakeAPI(func(method, path string) (*requester.Response, error) {
		if path == "/api/auth/logout" {
			close(entered)
			<-release
		}
		return &requester.Response{StatusCode: http.StatusOK, Body: mustJSON(alice)}, nil
	})
	nav := &routeRecorder{}
	m := newManager(api, nav)
	m.Hydrate(context.Background())

	first := make(chan bool)
	go func() { first <- m.Logout(context.Background()) }()
	<-entered

	assert.False(t, m.Logout(context.Background()), "second logout must be a no-op")

	close(release)
	assert.True(t, <-first)
	assert.Equal(t, 1, api.count("POST /api/auth/logout"))
	assert.Equal(t, []string{"home"}, nav.Routes())
}

func TestLogoutWinsOverInFlightHydration(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var checks atomic.Int32
	api := newFakeAPI(func(method, path string) (*requester.Response, error) {
		if path == "/api/auth/me" && checks.Add(1) == 2 {
			close(started)
			<-release
		}
		return &requester.Response{StatusCode: http.StatusOK, Body: mustJSON(alice)}, nil
	})
	m := newManager(api, NavigatorFunc(func(string) {}))
	m.Hydrate(context.Background())

	done := make(chan struct{})
	go func() {
		m.Hydrate(context.Background())
		close(done)
	}()
	<-started

	m.Logout(context.Background())
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hydration did not return")
	}
	assert.Nil(t, m.User(), "late session check must not resurrect the session")
	assert.False(t, m.IsLoading())
}
