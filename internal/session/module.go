package session

import (
	"github.com/siba-ai/siba-chat/internal/requester"
	"go.uber.org/fx"
)

// Module provides the session store, hydrator, logout coordinator and the
// Manager facade. The caller supplies a Navigator and the config module.
var Module = fx.Module("session",
	fx.Provide(
		NewStore,
		fx.Annotate(
			func(r *requester.HTTPRequester) *requester.HTTPRequester { return r },
			fx.As(new(API)),
		),
		fx.Annotate(
			func(j *requester.FileJar) *requester.FileJar { return j },
			fx.As(new(Credentials)),
		),
		NewHydrator,
		NewLogoutCoordinator,
		NewManager,
	),
)
