// Package session owns the client's notion of who is logged in: the state
// container, the hydrator that fills it from the server, the logout
// coordinator, and the gate that protected views are rendered behind.
package session

import (
	"context"

	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/requester"
)

// Session is the server-asserted identity of the current user.
type Session struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Valid reports whether every required field is present and the email is
// institutional. Consumers never see a Session that fails this check.
func (s *Session) Valid(d domain.Domain) bool {
	return s != nil && s.UserID != "" && s.Email != "" && d.IsInstitutional(s.Email)
}

// Name is the display name, falling back to the email.
func (s *Session) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Email
}

// LoadingFlag tells consumers whether the Session in a Snapshot is authoritative.
type LoadingFlag int

const (
	// Pending means a hydration is in flight; do not branch on Session.
	Pending LoadingFlag = iota
	// Settled means Session is authoritative.
	Settled
)

func (f LoadingFlag) String() string {
	if f == Settled {
		return "settled"
	}
	return "pending"
}

// Snapshot is an immutable view of the store.
type Snapshot struct {
	Session *Session
	Loading LoadingFlag
}

// Authenticated reports a settled, present session.
func (s Snapshot) Authenticated() bool {
	return s.Loading == Settled && s.Session != nil
}

// API is the credential-bearing transport used to reach the auth backend.
type API interface {
	Do(ctx context.Context, method, path string, body interface{}) (*requester.Response, error)
}

// Navigator moves the application to a named route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Credentials is the client's copy of its server credentials.
type Credentials interface {
	// Forget drops them, so a later run cannot resume the session.
	Forget() error
}
