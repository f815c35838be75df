// Package completion finishes a sign-in started in the system browser. The
// backend records a one-time handoff under the OAuth state when its callback
// succeeds; claiming it drops the session cookie into this client's jar.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/siba-ai/siba-chat/internal/auth/constants"
	"github.com/siba-ai/siba-chat/internal/auth/initiator"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/logger"
	"github.com/siba-ai/siba-chat/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// finishTimeout bounds the session check that follows a successful claim.
const finishTimeout = 10 * time.Second

var (
	// ErrHandoffPending means the browser has not finished the flow yet.
	ErrHandoffPending = errors.New("sign-in not completed yet")
	// ErrHandoffTimeout means the flow was not completed in time.
	ErrHandoffTimeout = errors.New("timed out waiting for sign-in")
)

// Completer claims handoffs and re-validates the session afterwards.
type Completer struct {
	api      session.API
	manager  *session.Manager
	timeout  time.Duration
	interval time.Duration
}

type Params struct {
	fx.In

	API          session.API
	Manager      *session.Manager
	ClientConfig *config.ClientConfig
}

func NewCompleter(p Params) *Completer {
	return &Completer{
		api:      p.API,
		manager:  p.Manager,
		timeout:  p.ClientConfig.HandoffTimeout,
		interval: p.ClientConfig.HandoffPollInterval,
	}
}

// Timeout is how long a sign-in may take.
func (c *Completer) Timeout() time.Duration {
	return c.timeout
}

// Interval is the delay between two claims.
func (c *Completer) Interval() time.Duration {
	return c.interval
}

// Claim tries once to claim the handoff of pending.
func (c *Completer) Claim(ctx context.Context, pending *initiator.PendingAuthorization) error {
	resp, err := c.api.Do(ctx, http.MethodPost, constants.RouteHandoff, map[string]string{
		"state":    pending.State,
		"verifier": pending.Verifier,
	})
	if err != nil {
		return fmt.Errorf("failed to claim sign-in: %w", err)
	}
	switch {
	case resp.OK():
		logger.Info("Claimed sign-in handoff")
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusTooEarly:
		return ErrHandoffPending
	default:
		return fmt.Errorf("failed to claim sign-in: unexpected status %d", resp.StatusCode)
	}
}

// Finish re-runs hydration after a successful claim. The store only ever
// learns about the new session from the server.
func (c *Completer) Finish(ctx context.Context) session.Snapshot {
	return c.manager.Hydrate(ctx)
}

// Await polls Claim until it succeeds, fails for a reason other than a
// pending flow, or the timeout elapses, then hydrates.
func (c *Completer) Await(ctx context.Context, pending *initiator.PendingAuthorization) (session.Snapshot, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		err := c.Claim(pollCtx, pending)
		if err == nil {
			// the poll deadline may be nearly spent; the session check gets its own
			finishCtx, cancelFinish := context.WithTimeout(ctx, finishTimeout)
			defer cancelFinish()
			return c.Finish(finishCtx), nil
		}
		if !errors.Is(err, ErrHandoffPending) {
			if errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
				return session.Snapshot{}, ErrHandoffTimeout
			}
			return session.Snapshot{}, err
		}
		logger.Debug("Sign-in still pending", zap.String("state", pending.State))

		select {
		case <-pollCtx.Done():
			if errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
				return session.Snapshot{}, ErrHandoffTimeout
			}
			return session.Snapshot{}, pollCtx.Err()
		case <-ticker.C:
		}
	}
}

var Module = fx.Module("completion", fx.Provide(NewCompleter))
