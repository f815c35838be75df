package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/siba-ai/siba-chat/internal/auth/constants"
	"github.com/siba-ai/siba-chat/internal/auth/token"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/logger"
	"github.com/siba-ai/siba-chat/internal/utils"
	"go.uber.org/zap"
)

// AuthContext is the key type for the context
type authContextKey string

const (
	// AuthContextKey is used to store auth info in the request context
	AuthContextKey authContextKey = "auth"
)

// AuthInfo represents the authentication information stored in context
type AuthInfo struct {
	UserID string
	Email  string
	Token  string
}

// FromContext returns the AuthInfo placed by RequireSession.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(AuthContextKey).(*AuthInfo)
	return info, ok
}

// Rejection is a request refused for lack of a valid session. Detail is
// shown to the caller.
type Rejection struct {
	Status int
	Detail string
}

func (r *Rejection) Error() string { return r.Detail }

// Verify extracts and checks the session token of a request. The email in the
// token must still be institutional.
func Verify(r *http.Request, tokens *token.Manager, d domain.Domain) (*AuthInfo, error) {
	raw := ExtractToken(r)
	if raw == "" {
		return nil, &Rejection{Status: http.StatusUnauthorized, Detail: "Not authenticated"}
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			return nil, &Rejection{Status: http.StatusUnauthorized, Detail: "Token expired"}
		}
		return nil, &Rejection{Status: http.StatusUnauthorized, Detail: "Invalid token"}
	}
	if !d.IsInstitutional(claims.Email) {
		return nil, &Rejection{Status: http.StatusForbidden, Detail: "Access restricted to IBA Sukkur accounts"}
	}
	return &AuthInfo{UserID: claims.Subject, Email: claims.Email, Token: raw}, nil
}

// WriteRejection writes err as a JSON error.
func WriteRejection(w http.ResponseWriter, err error) {
	var rej *Rejection
	if !errors.As(err, &rej) {
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if rej.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", constants.TokenType)
	}
	utils.WriteError(w, rej.Status, rej.Detail)
}

// RequireSession rejects requests without a valid session unless the path is public.
func RequireSession(tokens *token.Manager, d domain.Domain) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			info, err := Verify(r, tokens, d)
			if err != nil {
				logger.Debug("Rejected request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				WriteRejection(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), AuthContextKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsPublicPath reports whether path is reachable without a session.
func IsPublicPath(path string) bool {
	for _, p := range constants.PublicPaths {
		if path == p {
			return true
		}
		if p != "/" && strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// CORSWithOrigins allows credentialed requests from the listed origins only.
func CORSWithOrigins(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken reads the session cookie, falling back to a Bearer header.
func ExtractToken(r *http.Request) string {
	if c, err := r.Cookie(constants.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get(constants.AuthHeaderName)
	if strings.HasPrefix(authHeader, constants.AuthHeaderPrefix) {
		return strings.TrimPrefix(authHeader, constants.AuthHeaderPrefix)
	}
	return ""
}
