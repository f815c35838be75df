package constants

import "time"

const (
	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"

	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "

	// CookieName carries the session JWT
	CookieName = "access_token"

	// CookieMaxAge mirrors the JWT lifetime
	CookieMaxAge = time.Hour

	// ProviderGoogle is stored on user records created through Google
	ProviderGoogle = "google"
)

// Routes of the auth API
const (
	RoutePrefix       = "/api/auth"
	RouteGoogle       = RoutePrefix + "/google"
	RouteCallback     = RoutePrefix + "/google/callback"
	RouteHandoff      = RoutePrefix + "/handoff"
	RouteMe           = RoutePrefix + "/me"
	RouteLogout       = RoutePrefix + "/logout"
	RoutePublicAPI    = "/api/public"
	RouteDashboard    = "/dashboard"
	QueryError        = "error"
	QueryCode         = "code"
	QueryState        = "state"
	ParamHostedDomain = "hd"
	ParamLoginHint    = "login_hint"
)

// OAuth scopes
var DefaultScopes = []string{"openid", "email", "profile"}

// PublicPaths never require a session.
var PublicPaths = []string{
	"/",
	RoutePublicAPI,
	RouteGoogle,
	RouteCallback,
	RouteLogout,
	RouteHandoff,
}
