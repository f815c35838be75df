package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siba-ai/siba-chat/internal/auth/models"
)

type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.UserRecord
	now   func() time.Time
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*models.UserRecord),
		now:   time.Now,
	}
}

func (s *MemoryUserStore) Upsert(_ context.Context, info *models.UserInfo, provider string) (*models.UserRecord, error) {
	email := strings.ToLower(info.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[email]
	if !ok {
		rec = &models.UserRecord{
			ID:        userID(info),
			Email:     email,
			Provider:  provider,
			CreatedAt: s.now().UTC(),
		}
		s.users[email] = rec
	}
	if info.Name != "" {
		rec.Name = info.Name
	}
	if info.Picture != "" {
		rec.Picture = info.Picture
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *rec
	return &cp, nil
}

type MemoryHandoffStore struct {
	mu       sync.Mutex
	handoffs map[string]*models.Handoff
	now      func() time.Time
}

func NewMemoryHandoffStore() *MemoryHandoffStore {
	return &MemoryHandoffStore{
		handoffs: make(map[string]*models.Handoff),
		now:      time.Now,
	}
}

func (s *MemoryHandoffStore) Put(_ context.Context, h *models.Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for state, existing := range s.handoffs {
		if existing.Expired(now) {
			delete(s.handoffs, state)
		}
	}
	cp := *h
	s.handoffs[h.State] = &cp
	return nil
}

func (s *MemoryHandoffStore) Claim(_ context.Context, state, verifier string) (*models.Handoff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handoffs[state]
	if !ok {
		return nil, ErrHandoffNotFound
	}
	if h.Expired(s.now()) {
		delete(s.handoffs, state)
		return nil, ErrHandoffNotFound
	}
	if !h.Verify(verifier) {
		return nil, ErrHandoffNotFound
	}
	delete(s.handoffs, state)
	return h, nil
}

// userID prefers the provider's subject so ids stay stable across stores.
func userID(info *models.UserInfo) string {
	if info.ID != "" {
		return info.ID
	}
	return uuid.NewString()
}
