package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Hydrator asks the server who is logged in and writes the answer into the
// Store. Every attempt is numbered; an answer is applied only if no newer
// attempt has already been applied, so a slow stale response can never
// overwrite a fresher one.
type Hydrator struct {
	store  *Store
	api    API
	path   string
	domain domain.Domain

	mu      sync.Mutex
	issued  uint64
	applied uint64
}

type HydratorParams struct {
	fx.In

	Store        *Store
	API          API
	ClientConfig *config.ClientConfig
	Domain       domain.Domain
}

func NewHydrator(p HydratorParams) *Hydrator {
	return &Hydrator{
		store:  p.Store,
		api:    p.API,
		path:   p.ClientConfig.SessionCheckPath,
		domain: p.Domain,
	}
}

// Hydrate runs one session check. It never fails: any error resolves to "no
// session". The returned snapshot is the store state once this attempt is done.
func (h *Hydrator) Hydrate(ctx context.Context) Snapshot {
	h.mu.Lock()
	h.issued++
	seq := h.issued
	h.store.publish(Snapshot{Session: h.store.Read().Session, Loading: Pending})
	h.mu.Unlock()

	sess := h.check(ctx, seq)

	h.mu.Lock()
	defer h.mu.Unlock()
	if seq <= h.applied {
		logger.Debug("Discarding stale session check", zap.Uint64("seq", seq), zap.Uint64("applied", h.applied))
		return h.store.Read()
	}
	h.applied = seq

	loading := Settled
	if seq < h.issued {
		// a newer check is still in flight; keep consumers waiting for it
		loading = Pending
	}
	h.store.publish(Snapshot{Session: sess, Loading: loading})
	return h.store.Read()
}

func (h *Hydrator) check(ctx context.Context, seq uint64) *Session {
	resp, err := h.api.Do(ctx, http.MethodGet, h.path, nil)
	if err != nil {
		logger.Debug("Session check failed", zap.Uint64("seq", seq), zap.Error(err))
		return nil
	}
	if !resp.OK() {
		logger.Debug("No server session", zap.Uint64("seq", seq), zap.Int("status", resp.StatusCode))
		return nil
	}

	var sess Session
	if err := resp.Decode(&sess); err != nil {
		logger.Warn("Malformed session response", zap.Uint64("seq", seq), zap.Error(err))
		return nil
	}
	if !sess.Valid(h.domain) {
		logger.Warn("Rejecting incomplete or non-institutional session", zap.Uint64("seq", seq))
		return nil
	}
	return &sess
}

// supersede settles the store on sess and invalidates every check still in
// flight. The logout path uses it so a late response cannot resurrect a
// session that was just terminated.
func (h *Hydrator) supersede(sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.applied = h.issued
	h.store.publish(Snapshot{Session: sess, Loading: Settled})
}
