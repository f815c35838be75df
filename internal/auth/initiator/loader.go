// Package initiator starts the identity provider's authorization-code flow
// in the system browser, restricted to the institutional domain.
package initiator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const discoveryTimeout = 10 * time.Second

// Loader fetches the provider's discovery document at most once per process.
// Concurrent callers share one fetch. A failed fetch is not remembered, so a
// later call tries again.
type Loader struct {
	issuer string
	client *http.Client
	group  singleflight.Group

	mu       sync.RWMutex
	provider *oidc.Provider
}

func NewLoader(cfg *config.GoogleConfig) *Loader {
	return &Loader{
		issuer: cfg.Issuer,
		client: &http.Client{Timeout: discoveryTimeout},
	}
}

// Load returns the discovered provider.
func (l *Loader) Load(ctx context.Context) (*oidc.Provider, error) {
	if p := l.cached(); p != nil {
		return p, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := l.group.DoChan("discovery", func() (interface{}, error) {
		if p := l.cached(); p != nil {
			return p, nil
		}
		// detached from ctx: an abandoned caller must not fail the shared fetch
		p, err := oidc.NewProvider(oidc.ClientContext(context.Background(), l.client), l.issuer)
		if err != nil {
			logger.Warn("Provider discovery failed", zap.String("issuer", l.issuer), zap.Error(err))
			return nil, err
		}
		l.mu.Lock()
		l.provider = p
		l.mu.Unlock()
		logger.Debug("Provider discovered", zap.String("issuer", l.issuer))
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to load provider %s: %w", l.issuer, res.Err)
		}
		return res.Val.(*oidc.Provider), nil
	}
}

// Loaded reports whether discovery has succeeded.
func (l *Loader) Loaded() bool {
	return l.cached() != nil
}

func (l *Loader) cached() *oidc.Provider {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.provider
}
