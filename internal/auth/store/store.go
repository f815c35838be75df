// Package store keeps the backend's users and pending handoffs, either in
// process memory or in redis.
package store

import (
	"context"
	"errors"

	"github.com/siba-ai/siba-chat/internal/auth/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrHandoffNotFound  = errors.New("handoff not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// UserStore persists users, unique by email.
type UserStore interface {
	// Upsert creates the user on first login and refreshes name and picture
	// afterwards. The id and creation time of an existing user never change.
	Upsert(ctx context.Context, info *models.UserInfo, provider string) (*models.UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*models.UserRecord, error)
}

// HandoffStore holds one-time grants keyed by OAuth state.
type HandoffStore interface {
	Put(ctx context.Context, h *models.Handoff) error
	// Claim returns and removes the handoff when verifier matches its
	// challenge. A wrong verifier leaves it in place. A second claim for the
	// same state fails with ErrHandoffNotFound.
	Claim(ctx context.Context, state, verifier string) (*models.Handoff, error)
}
