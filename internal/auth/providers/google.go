package providers

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/siba-ai/siba-chat/internal/auth/constants"
	"github.com/siba-ai/siba-chat/internal/auth/models"
	"github.com/siba-ai/siba-chat/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleIssuer is the issuer for which the well-known Google endpoint is used
const GoogleIssuer = "https://accounts.google.com"

type GoogleProvider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// NewGoogleProvider discovers the issuer and prepares the code exchange and ID
// token verification.
func NewGoogleProvider(ctx context.Context, cfg *config.GoogleConfig) (*GoogleProvider, error) {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = GoogleIssuer
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	endpoint := provider.Endpoint()
	if issuer == GoogleIssuer {
		endpoint = google.Endpoint
	}

	return NewGoogleProviderWithVerifier(&oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       constants.DefaultScopes,
	}, provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

// NewGoogleProviderWithVerifier builds a provider from parts, skipping discovery.
func NewGoogleProviderWithVerifier(cfg *oauth2.Config, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{
		oauth2Config: cfg,
		verifier:     verifier,
	}
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	cfg := *p.oauth2Config // copy
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}
	return cfg.Exchange(ctx, code)
}

func (p *GoogleProvider) ValidateToken(ctx context.Context, token *oauth2.Token) (*models.UserInfo, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}
	return p.ValidateIDToken(ctx, rawIDToken)
}

func (p *GoogleProvider) ValidateIDToken(ctx context.Context, rawIDToken string) (*models.UserInfo, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("ID token carries no email")
	}

	return &models.UserInfo{
		ID:            claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
