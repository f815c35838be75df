package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/requester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDomain = domain.MustNew("iba-suk.edu.pk", "@iba-suk.edu.pk")

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

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func jsonResponse(t *testing.T, status int, v interface{}) *requester.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return &requester.Response{StatusCode: status, Body: body}
}

func testClientConfig() *config.ClientConfig {
	return &config.ClientConfig{
		SessionCheckPath:       "/api/auth/me",
		SessionTerminationPath: "/api/auth/logout",
		LandingRoute:           "home",
	}
}

func newHydrator(api API) (*Store, *Hydrator) {
	store := NewStore()
	h := NewHydrator(HydratorParams{
		Store:        store,
		API:          api,
		ClientConfig: testClientConfig(),
		Domain:       testDomain,
	})
	return store, h
}

var alice = Session{UserID: "u1", Email: "alice@iba-suk.edu.pk", DisplayName: "Alice"}

func TestNewStoreStartsPending(t *testing.T) {
	store := NewStore()
	snap := store.Read()
	assert.Nil(t, snap.Session)
	assert.Equal(t, Pending, snap.Loading)
	assert.False(t, snap.Authenticated())
}

func TestHydrate(t *testing.T) {
	tests := []struct {
		name     string
		response func(t *testing.T) (*requester.Response, error)
		want     *Session
	}{
		{
			name: "valid session",
			response: func(t *testing.T) (*requester.Response, error) {
				return jsonResponse(t, http.StatusOK, alice), nil
			},
			want: &alice,
		},
		{
			name: "unauthorized",
			response: func(t *testing.T) (*requester.Response, error) {
				return &requester.Response{StatusCode: http.StatusUnauthorized}, nil
			},
		},
		{
			name: "transport error",
			response: func(t *testing.T) (*requester.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
		{
			name: "malformed body",
			response: func(t *testing.T) (*requester.Response, error) {
				return &requester.Response{StatusCode: http.StatusOK, Body: []byte("<html>")}, nil
			},
		},
		{
			name: "empty body",
			response: func(t *testing.T) (*requester.Response, error) {
				return &requester.Response{StatusCode: http.StatusOK}, nil
			},
		},
		{
			name: "missing user id",
			response: func(t *testing.T) (*requester.Response, error) {
				return jsonResponse(t, http.StatusOK, Session{Email: "alice@iba-suk.edu.pk"}), nil
			},
		},
		{
			name: "non-institutional email",
			response: func(t *testing.T) (*requester.Response, error) {
				return jsonResponse(t, http.StatusOK, Session{UserID: "u2", Email: "bob@gmail.com"}), nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(func(string, string) (*requester.Response, error) { return tt.response(t) })
			store, h := newHydrator(api)

			snap := h.Hydrate(context.Background())

			assert.Equal(t, Settled, snap.Loading)
			if diff := cmp.Diff(tt.want, snap.Session); diff != "" {
				t.Errorf("session mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, snap, store.Read())
			assert.Equal(t, 1, api.count("GET /api/auth/me"))
		})
	}
}

func TestHydrateIsIdempotent(t *testing.T) {
	api := newFakeAPI(func(string, string) (*requester.Response, error) {
		return &requester.Response{StatusCode: http.StatusOK, Body: mustJSON(alice)}, nil
	})
	store, h := newHydrator(api)

	first := h.Hydrate(context.Background())
	second := h.Hydrate(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, first, store.Read())
}

func TestHydrateDiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	var n atomic.Int32
	api := newFakeAPI(func(string, string) (*requester.Response, error) {
		if n.Add(1) == 1 {
			// first check answers late with a session that no longer exists
			<-release
			return &requester.Response{StatusCode: http.StatusOK, Body: mustJSON(alice)}, nil
		}
		return &requester.Response{StatusCode: http.StatusUnauthorized}, nil
	})
	store, h := newHydrator(api)

	done := make(chan Snapshot)
	go func() { done <- h.Hydrate(context.Background()) }()
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)

	second := h.Hydrate(context.Background())
	assert.Nil(t, second.Session)
	assert.Equal(t, Settled, second.Loading)

	close(release)
	<-done

	snap := store.Read()
	assert.Nil(t, snap.Session)
	assert.Equal(t, Settled, snap.Loading)
}

func TestHydrateStaysPendingWhileNewerCheckInFlight(t *testing.T) {
	var n atomic.Int32
	firstStarted := make(chan struct{})
	firstRelease := make(chan struct{})
	release := make(chan struct{})
	api := newFakeAPI(func(string, string) (*requester.Response, error) {
		switch n.Add(1) {
		case 1:
			close(firstStarted)
			<-firstRelease
		case 2:
			<-release
		}
		return &requester.Response{StatusCode: http.StatusOK, Body: mustJSON(alice)}, nil
	})
	store, h := newHydrator(api)

	firstDone := make(chan Snapshot)
	go func() { firstDone <- h.Hydrate(context.Background()) }()
	<-firstStarted

	secondDone := make(chan Snapshot)
	go func() { secondDone <- h.Hydrate(context.Background()) }()
	require.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, time.Millisecond)

	close(firstRelease)
	first := <-firstDone
	assert.Equal(t, Pending, first.Loading, "older answer must not settle while a newer check runs")
	assert.Equal(t, Checking, StateOf(store.Read()))

	close(release)
	second := <-secondDone
	assert.Equal(t, Settled, second.Loading)
	assert.True(t, second.Authenticated())
}

func TestSubscribeDeliversLatest(t *testing.T) {
	store := NewStore()
	ch, cancel := store.Subscribe()
	defer cancel()

	initial := <-ch
	assert.Equal(t, Pending, initial.Loading)

	// nobody reads in between; only the latest survives
	store.publish(Snapshot{Loading: Settled})
	store.publish(Snapshot{Session: &alice, Loading: Settled})

	latest := <-ch
	assert.True(t, latest.Authenticated())
	assert.Equal(t, "u1", latest.Session.UserID)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	store := NewStore()
	ch, cancel := store.Subscribe()
	<-ch
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// publishing after cancel must not panic
	store.publish(Snapshot{Loading: Settled})
}

func TestPublishedSessionIsCopied(t *testing.T) {
	store := NewStore()
	sess := alice
	store.publish(Snapshot{Session: &sess, Loading: Settled})
	sess.Email = "mallory@iba-suk.edu.pk"

	assert.Equal(t, "alice@iba-suk.edu.pk", store.Read().Session.Email)
}

func TestSessionName(t *testing.T) {
	assert.Equal(t, "Alice", alice.Name())
	assert.Equal(t, "bob@iba-suk.edu.pk", (&Session{Email: "bob@iba-suk.edu.pk"}).Name())
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
