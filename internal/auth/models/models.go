package models

import (
	"crypto/subtle"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// UserInfo represents authenticated user information from the identity provider
type UserInfo struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// UserRecord is a user known to the backend. Email is unique.
type UserRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionUser is the body of GET /me, the shape the client hydrates from.
type SessionUser struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// ToSession converts a record to the client-facing shape.
func (u *UserRecord) ToSession() SessionUser {
	return SessionUser{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.Name,
		AvatarURL:   u.Picture,
	}
}

// Handoff is a one-time grant recorded by the OAuth callback and claimed by
// a native client that started the flow with the same state. Claiming it
// requires the verifier behind Challenge.
type Handoff struct {
	State     string    `json:"state"`
	Challenge string    `json:"challenge"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandoffState builds the OAuth state of a native sign-in: a random nonce
// followed by the S256 challenge of the client's secret verifier.
func HandoffState(nonce, verifier string) string {
	return nonce + "." + oauth2.S256ChallengeFromVerifier(verifier)
}

// HandoffChallenge returns the challenge carried by a state built with
// HandoffState. Browser-only flows carry none.
func HandoffChallenge(state string) (string, bool) {
	_, challenge, ok := strings.Cut(state, ".")
	return challenge, ok && challenge != ""
}

// Verify reports whether verifier is the secret behind the handoff's challenge.
func (h *Handoff) Verify(verifier string) bool {
	if verifier == "" || h.Challenge == "" {
		return false
	}
	got := oauth2.S256ChallengeFromVerifier(verifier)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.Challenge)) == 1
}

// Expired reports whether the handoff can no longer be claimed.
func (h *Handoff) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
