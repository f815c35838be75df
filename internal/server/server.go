// Package server runs the auth backend that the terminal client signs in against.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/siba-ai/siba-chat/internal/auth"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/logger"
	"github.com/siba-ai/siba-chat/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server serves the auth API over HTTP.
type Server struct {
	config  *config.ServerConfig
	handler *handler.Handler
}

type Params struct {
	fx.In

	Config *config.ServerConfig
	Auth   *auth.Service
}

// NewServer creates a new server instance with the provided configuration.
func NewServer(p Params) *Server {
	if p.Config == nil {
		logger.Fatal("Config cannot be nil")
	}
	if p.Auth == nil {
		logger.Fatal("Auth service cannot be nil")
	}
	return &Server{
		config:  p.Config,
		handler: handler.NewHandler(p.Auth),
	}
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Handler returns the full middleware stack.
func (s *Server) Handler() http.Handler {
	return s.handler.CreateHTTPHandler()
}

// Start listens on the configured address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.Timeout,
		WriteTimeout:      s.config.Timeout,
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("address", ln.Addr().String()))

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// Module provides the auth backend server
var Module = fx.Module("server",
	auth.Module,
	fx.Provide(
		NewServer,
	),
)
