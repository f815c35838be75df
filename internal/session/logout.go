package session

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// LogoutCoordinator terminates the server session best-effort, then always
// clears the store and sends the user to the public landing route.
type LogoutCoordinator struct {
	api         API
	path        string
	landing     string
	hydrator    *Hydrator
	navigator   Navigator
	credentials Credentials

	inFlight atomic.Bool
}

type LogoutParams struct {
	fx.In

	API          API
	ClientConfig *config.ClientConfig
	Hydrator     *Hydrator
	Navigator    Navigator
	Credentials  Credentials `optional:"true"`
}

func NewLogoutCoordinator(p LogoutParams) *LogoutCoordinator {
	return &LogoutCoordinator{
		api:         p.API,
		path:        p.ClientConfig.SessionTerminationPath,
		landing:     p.ClientConfig.LandingRoute,
		hydrator:    p.Hydrator,
		navigator:   p.Navigator,
		credentials: p.Credentials,
	}
}

// Logout reports whether this call performed the logout. A call made while
// another is in flight does nothing and returns false.
func (l *LogoutCoordinator) Logout(ctx context.Context) bool {
	if !l.inFlight.CompareAndSwap(false, true) {
		logger.Debug("Logout already in progress")
		return false
	}
	defer l.inFlight.Store(false)

	resp, err := l.api.Do(ctx, http.MethodPost, l.path, nil)
	switch {
	case err != nil:
		logger.Warn("Logout request failed, clearing local session anyway", zap.Error(err))
	case !resp.OK():
		logger.Warn("Logout rejected by server, clearing local session anyway", zap.Int("status", resp.StatusCode))
	default:
		logger.Info("Logged out")
	}

	// the server may not have expired the cookie, so the local copy goes too
	if l.credentials != nil {
		if err := l.credentials.Forget(); err != nil {
			logger.Warn("Failed to forget local session cookies", zap.Error(err))
		}
	}

	l.hydrator.supersede(nil)
	if l.navigator != nil {
		l.navigator.Navigate(l.landing)
	}
	return true
}
