package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/siba-ai/siba-chat/internal/auth/models"
)

const (
	fieldID        = "id"
	fieldEmail     = "email"
	fieldName      = "name"
	fieldPicture   = "picture"
	fieldProvider  = "provider"
	fieldCreatedAt = "created_at"
)

// RedisUserStore keeps one hash per email.
type RedisUserStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisUserStore(client redis.UniversalClient, prefix string) *RedisUserStore {
	if prefix == "" {
		prefix = "siba"
	}
	return &RedisUserStore{redis: client, prefix: prefix, now: time.Now}
}

func (s *RedisUserStore) key(email string) string {
	return s.prefix + ":user:" + strings.ToLower(email)
}

func (s *RedisUserStore) Upsert(ctx context.Context, info *models.UserInfo, provider string) (*models.UserRecord, error) {
	email := strings.ToLower(info.Email)
	key := s.key(email)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// HSETNX keeps the first id and creation time
		pipe.HSetNX(ctx, key, fieldID, userID(info))
		pipe.HSetNX(ctx, key, fieldCreatedAt, s.now().UTC().Format(time.RFC3339Nano))
		pipe.HSetNX(ctx, key, fieldProvider, provider)
		pipe.HSet(ctx, key, fieldEmail, email)
		if info.Name != "" {
			pipe.HSet(ctx, key, fieldName, info.Name)
		}
		if info.Picture != "" {
			pipe.HSet(ctx, key, fieldPicture, info.Picture)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.GetByEmail(ctx, email)
}

func (s *RedisUserStore) GetByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}

	rec := &models.UserRecord{
		ID:       fields[fieldID],
		Email:    fields[fieldEmail],
		Name:     fields[fieldName],
		Picture:  fields[fieldPicture],
		Provider: fields[fieldProvider],
	}
	if ts := fields[fieldCreatedAt]; ts != "" {
		created, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("corrupt user record %s: %w", email, err)
		}
		rec.CreatedAt = created
	}
	return rec, nil
}

// RedisHandoffStore keeps each handoff under its own key with a TTL.
type RedisHandoffStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisHandoffStore(client redis.UniversalClient, prefix string) *RedisHandoffStore {
	if prefix == "" {
		prefix = "siba"
	}
	return &RedisHandoffStore{redis: client, prefix: prefix, now: time.Now}
}

func (s *RedisHandoffStore) key(state string) string {
	return s.prefix + ":handoff:" + state
}

func (s *RedisHandoffStore) Put(ctx context.Context, h *models.Handoff) error {
	ttl := h.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("handoff for state %s already expired", h.State)
	}
	encoded, err := json.Marshal(h)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(h.State), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisHandoffStore) Claim(ctx context.Context, state, verifier string) (*models.Handoff, error) {
	raw, err := s.redis.Get(ctx, s.key(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrHandoffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var h models.Handoff
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("corrupt handoff %s: %w", state, err)
	}
	if h.Expired(s.now()) || !h.Verify(verifier) {
		return nil, ErrHandoffNotFound
	}

	// only the caller that actually deletes the key wins a concurrent claim
	deleted, err := s.redis.Del(ctx, s.key(state)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if deleted == 0 {
		return nil, ErrHandoffNotFound
	}
	return &h, nil
}
