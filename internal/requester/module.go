package requester

import (
	"net/http"

	"github.com/siba-ai/siba-chat/internal/config"
	"go.uber.org/fx"
)

func newCookieJar(cfg *config.ClientConfig) (*FileJar, error) {
	return NewFileJar(cfg.APIBase, cfg.SessionFile)
}

// Module provides the cookie jar and the requester built on it.
var Module = fx.Module("requester",
	fx.Provide(
		newCookieJar,
		fx.Annotate(
			func(j *FileJar) *FileJar { return j },
			fx.As(new(http.CookieJar)),
		),
		NewHTTPRequester,
	),
)
