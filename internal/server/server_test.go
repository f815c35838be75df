package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/siba-ai/siba-chat/internal/auth"
	"github.com/siba-ai/siba-chat/internal/auth/models"
	"github.com/siba-ai/siba-chat/internal/auth/store"
	"github.com/siba-ai/siba-chat/internal/auth/token"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type stubProvider struct{}

func (stubProvider) ExchangeCode(context.Context, string, string) (*oauth2.Token, error) {
	return nil, assert.AnError
}

func (stubProvider) ValidateToken(context.Context, *oauth2.Token) (*models.UserInfo, error) {
	return nil, assert.AnError
}

func (stubProvider) ValidateIDToken(context.Context, string) (*models.UserInfo, error) {
	return nil, assert.AnError
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.ServerConfig{
		Host:         "127.0.0.1",
		Timeout:      5 * time.Second,
		FrontendURL:  "http://localhost:3000",
		JWTSecret:    "secret",
		TokenTTL:     time.Hour,
		HandoffTTL:   time.Minute,
		AllowOrigins: []string{"http://localhost:3000"},
	}
	tokens, err := token.NewManager(cfg)
	require.NoError(t, err)

	svc := auth.NewService(auth.ServiceParams{
		Config:   cfg,
		Provider: stubProvider{},
		Users:    store.NewMemoryUserStore(),
		Handoffs: store.NewMemoryHandoffStore(),
		Tokens:   tokens,
		Domain:   domain.MustNew("iba-suk.edu.pk", "@iba-suk.edu.pk"),
	})
	return NewServer(Params{Config: cfg, Auth: svc})
}

func TestServeAndShutdown(t *testing.T) {
	srv := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/", http.StatusOK},
		{"/api/public/health", http.StatusOK},
		{"/api/auth/me", http.StatusUnauthorized},
		{"/api/chat", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(base + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body)
		})
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := newTestServer(t)
	srv.config.Port = ln.Addr().(*net.TCPAddr).Port

	err = srv.Start(context.Background())
	assert.Error(t, err)
}
