package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/siba-ai/siba-chat/internal/auth/constants"
	"github.com/siba-ai/siba-chat/internal/auth/handlers"
	"github.com/siba-ai/siba-chat/internal/auth/middleware"
	"github.com/siba-ai/siba-chat/internal/auth/providers"
	"github.com/siba-ai/siba-chat/internal/auth/store"
	"github.com/siba-ai/siba-chat/internal/auth/token"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/domain"
	"go.uber.org/fx"
)

// discoveryTimeout bounds each request to the identity provider
const discoveryTimeout = 15 * time.Second

// Service represents the auth backend
type Service struct {
	config  *config.ServerConfig
	tokens  *token.Manager
	domain  domain.Domain
	handler *handlers.Handler
}

type ServiceParams struct {
	fx.In

	Config   *config.ServerConfig
	Provider providers.Provider
	Users    store.UserStore
	Handoffs store.HandoffStore
	Tokens   *token.Manager
	Domain   domain.Domain
}

// NewService creates a new auth service
func NewService(p ServiceParams) *Service {
	handler := handlers.NewHandler(handlers.Options{
		FrontendURL:  p.Config.FrontendURL,
		CookieSecure: p.Config.CookieSecure,
		HandoffTTL:   p.Config.HandoffTTL,
	}, p.Provider, p.Users, p.Handoffs, p.Tokens, p.Domain)

	return &Service{
		config:  p.Config,
		tokens:  p.Tokens,
		domain:  p.Domain,
		handler: handler,
	}
}

// RegisterRoutes registers all auth routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(constants.RouteGoogle, s.handler.HandleGoogleLogin)
	mux.HandleFunc(constants.RouteCallback, s.handler.HandleAuthCallback)
	mux.HandleFunc(constants.RouteHandoff, s.handler.HandleHandoff)
	mux.HandleFunc(constants.RouteMe, s.handler.HandleMe)
	mux.HandleFunc(constants.RouteLogout, s.handler.HandleLogout)
}

// WrapWithMiddleware adds CORS in front of everything and requires a session
// for every non-public path.
func (s *Service) WrapWithMiddleware(handler http.Handler) http.Handler {
	return middleware.CORSWithOrigins(s.config.AllowOrigins)(
		middleware.RequireSession(s.tokens, s.domain)(handler),
	)
}

func newProvider(cfg *config.GoogleConfig) (providers.Provider, error) {
	// the provider keeps this context for later key fetches, so it must outlive startup
	ctx := oidc.ClientContext(context.Background(), &http.Client{Timeout: discoveryTimeout})
	return providers.NewGoogleProvider(ctx, cfg)
}

// Module provides the auth service and everything behind it
var Module = fx.Module("auth",
	store.Module,
	fx.Provide(
		newProvider,
		token.NewManager,
		NewService,
	),
)
