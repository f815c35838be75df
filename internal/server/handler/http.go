// Package handler assembles the HTTP routes of the backend.
package handler

import (
	"net/http"

	"github.com/siba-ai/siba-chat/internal/auth"
	"github.com/siba-ai/siba-chat/internal/auth/constants"
	"github.com/siba-ai/siba-chat/internal/logger"
	"github.com/siba-ai/siba-chat/internal/utils"
)

// Handler manages HTTP request handling and middleware configuration.
type Handler struct {
	auth *auth.Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(auth *auth.Service) *Handler {
	return &Handler{
		auth: auth,
	}
}

// CreateHTTPHandler creates an HTTP handler with the auth routes behind CORS,
// and every non-public route behind the session check.
func (h *Handler) CreateHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	h.auth.RegisterRoutes(mux)
	logger.Info("Registered authentication routes")

	mux.HandleFunc(constants.RoutePublicAPI+"/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			utils.WriteError(w, http.StatusNotFound, "Not Found")
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "SIBA Chatbot Backend"})
	})

	return h.auth.WrapWithMiddleware(mux)
}
