package providers

import (
	"context"

	"github.com/siba-ai/siba-chat/internal/auth/models"
	"golang.org/x/oauth2"
)

// Provider defines what the backend needs from the identity provider
type Provider interface {
	// ExchangeCode exchanges an authorization code for tokens
	ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)

	// ValidateToken verifies the ID token carried by an OAuth token response
	ValidateToken(ctx context.Context, token *oauth2.Token) (*models.UserInfo, error)

	// ValidateIDToken verifies a raw ID token posted by a client
	ValidateIDToken(ctx context.Context, rawIDToken string) (*models.UserInfo, error)
}
