package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/redis/go-redis/v9"
	"github.com/siba-ai/siba-chat/internal/auth/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type backend struct {
	name     string
	users    UserStore
	handoffs HandoffStore
	// advance moves the clock of the backing store forward
	advance func(d time.Duration)
}

func backends(t *testing.T) []backend {
	t.Helper()

	memUsers := NewMemoryUserStore()
	memHandoffs := NewMemoryHandoffStore()
	var memOffset time.Duration
	memHandoffs.now = func() time.Time { return time.Now().Add(memOffset) }

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return []backend{
		{
			name:     "memory",
			users:    memUsers,
			handoffs: memHandoffs,
			advance:  func(d time.Duration) { memOffset += d },
		},
		{
			name:     "redis",
			users:    NewRedisUserStore(client, "test"),
			handoffs: NewRedisHandoffStore(client, "test"),
			advance:  mr.FastForward,
		},
	}
}

func TestUserStoreUpsert(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			first, err := b.users.Upsert(ctx, &models.UserInfo{
				ID:    "sub-1",
				Email: "Alice@IBA-SUK.edu.pk",
				Name:  "Alice",
			}, "google")
			require.NoError(t, err)
			assert.Equal(t, "sub-1", first.ID)
			assert.Equal(t, "alice@iba-suk.edu.pk", first.Email)
			assert.Equal(t, "google", first.Provider)
			assert.False(t, first.CreatedAt.IsZero())

			second, err := b.users.Upsert(ctx, &models.UserInfo{
				ID:      "sub-other",
				Email:   "alice@iba-suk.edu.pk",
				Picture: "https://example.com/a.png",
			}, "google")
			require.NoError(t, err)

			want := *first
			want.Picture = "https://example.com/a.png"
			if diff := cmp.Diff(&want, second, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}

			got, err := b.users.GetByEmail(ctx, "ALICE@iba-suk.edu.pk")
			require.NoError(t, err)
			assert.Equal(t, "sub-1", got.ID)
		})
	}
}

func TestUserStoreGeneratesID(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			rec, err := b.users.Upsert(context.Background(), &models.UserInfo{Email: "bob@iba-suk.edu.pk"}, "google")
			require.NoError(t, err)
			assert.Len(t, rec.ID, 36)
		})
	}
}

func TestUserStoreNotFound(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			_, err := b.users.GetByEmail(context.Background(), "nobody@iba-suk.edu.pk")
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestHandoffClaimIsOneTime(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			verifier := oauth2.GenerateVerifier()
			h := &models.Handoff{
				State:     "state-1",
				Challenge: oauth2.S256ChallengeFromVerifier(verifier),
				Email:     "alice@iba-suk.edu.pk",
				Token:     "jwt",
				ExpiresAt: time.Now().Add(time.Minute),
			}
			require.NoError(t, b.handoffs.Put(ctx, h))

			got, err := b.handoffs.Claim(ctx, "state-1", verifier)
			require.NoError(t, err)
			assert.Equal(t, "jwt", got.Token)
			assert.Equal(t, "alice@iba-suk.edu.pk", got.Email)

			_, err = b.handoffs.Claim(ctx, "state-1", verifier)
			assert.ErrorIs(t, err, ErrHandoffNotFound)

			_, err = b.handoffs.Claim(ctx, "unknown", verifier)
			assert.ErrorIs(t, err, ErrHandoffNotFound)
		})
	}
}

func TestHandoffExpires(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			verifier := oauth2.GenerateVerifier()
			require.NoError(t, b.handoffs.Put(ctx, &models.Handoff{
				State:     "state-2",
				Challenge: oauth2.S256ChallengeFromVerifier(verifier),
				Token:     "jwt",
				ExpiresAt: time.Now().Add(time.Minute),
			}))

			b.advance(2 * time.Minute)

			_, err := b.handoffs.Claim(ctx, "state-2", verifier)
			assert.ErrorIs(t, err, ErrHandoffNotFound)
		})
	}
}

func TestHandoffRequiresVerifier(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			verifier := oauth2.GenerateVerifier()
			require.NoError(t, b.handoffs.Put(ctx, &models.Handoff{
				State:     "state-3",
				Challenge: oauth2.S256ChallengeFromVerifier(verifier),
				Token:     "jwt",
				ExpiresAt: time.Now().Add(time.Minute),
			}))

			for _, wrong := range []string{"", oauth2.GenerateVerifier()} {
				_, err := b.handoffs.Claim(ctx, "state-3", wrong)
				assert.ErrorIs(t, err, ErrHandoffNotFound)
			}

			// a failed claim does not burn the grant for its owner
			got, err := b.handoffs.Claim(ctx, "state-3", verifier)
			require.NoError(t, err)
			assert.Equal(t, "jwt", got.Token)
		})
	}
}
