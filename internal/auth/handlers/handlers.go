package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/siba-ai/siba-chat/internal/auth/constants"
	"github.com/siba-ai/siba-chat/internal/auth/middleware"
	"github.com/siba-ai/siba-chat/internal/auth/models"
	"github.com/siba-ai/siba-chat/internal/auth/providers"
	"github.com/siba-ai/siba-chat/internal/auth/store"
	"github.com/siba-ai/siba-chat/internal/auth/token"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/logger"
	"github.com/siba-ai/siba-chat/internal/utils"
	"go.uber.org/zap"
)

// Options configures a Handler.
type Options struct {
	FrontendURL  string
	CookieSecure bool
	HandoffTTL   time.Duration
}

// Handler handles the auth API
type Handler struct {
	opts         Options
	authProvider providers.Provider
	users        store.UserStore
	handoffs     store.HandoffStore
	tokens       *token.Manager
	domain       domain.Domain
	now          func() time.Time
}

// NewHandler creates a new Handler instance
func NewHandler(opts Options, provider providers.Provider, users store.UserStore, handoffs store.HandoffStore, tokens *token.Manager, d domain.Domain) *Handler {
	opts.FrontendURL = strings.TrimSuffix(opts.FrontendURL, "/")
	return &Handler{
		opts:         opts,
		authProvider: provider,
		users:        users,
		handoffs:     handoffs,
		tokens:       tokens,
		domain:       d,
		now:          time.Now,
	}
}

type loginResponse struct {
	Message string             `json:"message"`
	User    models.SessionUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HandleGoogleLogin handles POST /api/auth/google with a raw ID token.
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		GoogleToken string `json:"google_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GoogleToken == "" {
		utils.WriteError(w, http.StatusBadRequest, "google_token is required")
		return
	}

	info, err := h.authProvider.ValidateIDToken(r.Context(), req.GoogleToken)
	if err != nil {
		logger.Warn("Rejected Google ID token", zap.Error(err))
		utils.WriteError(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}

	user, jwt, ok := h.login(w, r, info)
	if !ok {
		return
	}
	h.setSessionCookie(w, jwt)
	utils.WriteJSON(w, http.StatusOK, loginResponse{Message: "Login successful", User: user.ToSession()})
}

// HandleAuthCallback handles the redirect back from the identity provider.
func (h *Handler) HandleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	if providerErr := query.Get(constants.QueryError); providerErr != "" {
		logger.Info("Identity provider returned an error", zap.String("error", providerErr))
		http.Redirect(w, r, h.opts.FrontendURL+"/?error="+url.QueryEscape(providerErr), http.StatusFound)
		return
	}

	code := query.Get(constants.QueryCode)
	if code == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	oauthToken, err := h.authProvider.ExchangeCode(r.Context(), code, callbackURL(r))
	if err != nil {
		logger.Warn("Failed to exchange code", zap.Error(err))
		utils.WriteError(w, http.StatusUnauthorized, "Token exchange failed")
		return
	}
	info, err := h.authProvider.ValidateToken(r.Context(), oauthToken)
	if err != nil {
		logger.Warn("Failed to validate ID token", zap.Error(err))
		utils.WriteError(w, http.StatusUnauthorized, "No valid id_token returned")
		return
	}

	user, jwt, ok := h.login(w, r, info)
	if !ok {
		return
	}

	state := query.Get(constants.QueryState)
	if challenge, ok := models.HandoffChallenge(state); ok {
		err := h.handoffs.Put(r.Context(), &models.Handoff{
			State:     state,
			Challenge: challenge,
			Email:     user.Email,
			Token:     jwt,
			ExpiresAt: h.now().Add(h.opts.HandoffTTL),
		})
		if err != nil {
			// the browser still gets its cookie; only a native client would miss out
			logger.Error("Failed to record handoff", zap.Error(err))
		}
	}

	h.setSessionCookie(w, jwt)
	http.Redirect(w, r, h.opts.FrontendURL+constants.RouteDashboard, http.StatusFound)
}

// HandleHandoff lets a native client claim the session created by a callback
// carrying the state it generated. The client proves it generated the state
// with the verifier behind the state's challenge.
func (h *Handler) HandleHandoff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		State    string `json:"state"`
		Verifier string `json:"verifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.State == "" {
		utils.WriteError(w, http.StatusBadRequest, "state is required")
		return
	}

	handoff, err := h.handoffs.Claim(r.Context(), req.State, req.Verifier)
	if errors.Is(err, store.ErrHandoffNotFound) {
		utils.WriteError(w, http.StatusNotFound, "No completed sign-in for this state")
		return
	}
	if err != nil {
		logger.Error("Failed to claim handoff", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), handoff.Email)
	if err != nil {
		logger.Error("Handoff refers to unknown user", zap.String("email", handoff.Email), zap.Error(err))
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	h.setSessionCookie(w, handoff.Token)
	utils.WriteJSON(w, http.StatusOK, loginResponse{Message: "Login successful", User: user.ToSession()})
}

// HandleMe returns the user behind the session cookie.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info, ok := middleware.FromContext(r.Context())
	if !ok {
		var err error
		if info, err = middleware.Verify(r, h.tokens, h.domain); err != nil {
			middleware.WriteRejection(w, err)
			return
		}
	}

	user, err := h.users.GetByEmail(r.Context(), info.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		logger.Error("Failed to load user", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, user.ToSession())
}

// HandleLogout always clears the cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.clearSessionCookie(w)
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// login re-checks the domain, upserts the user and issues a session token.
// On failure it has already written the response.
func (h *Handler) login(w http.ResponseWriter, r *http.Request, info *models.UserInfo) (*models.UserRecord, string, bool) {
	if !h.domain.IsInstitutional(info.Email) {
		logger.Info("Rejected non-institutional login", zap.String("email", info.Email))
		utils.WriteError(w, http.StatusForbidden, h.domain.ValidationMessage())
		return nil, "", false
	}
	if info.Name == "" {
		info.Name = "IBA User"
	}

	user, err := h.users.Upsert(r.Context(), info, constants.ProviderGoogle)
	if err != nil {
		logger.Error("Failed to store user", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return nil, "", false
	}

	jwt, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		logger.Error("Failed to issue token", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return nil, "", false
	}
	logger.Info("User logged in", zap.String("user_id", user.ID))
	return user, jwt, true
}

func (h *Handler) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     constants.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.opts.CookieSecure {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, jwt string) {
	http.SetCookie(w, h.cookie(jwt, int(h.tokens.TTL().Seconds())))
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie("", -1))
}

// callbackURL is the request URL without its query, as registered with the provider.
func callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
	return u.String()
}
