package initiator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/siba-ai/siba-chat/internal/auth/constants"
	"github.com/siba-ai/siba-chat/internal/auth/models"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var (
	// ErrProviderUnavailable means the provider could not be loaded, so no
	// redirect was started.
	ErrProviderUnavailable = errors.New("sign-in provider unavailable")
	// ErrNotConfigured means no OAuth client id is set.
	ErrNotConfigured = errors.New("google.client_id is not configured")
)

// PendingAuthorization identifies a redirect in progress. It carries no
// session; the session only ever comes from the server. Verifier never leaves
// this process except to claim the handoff.
type PendingAuthorization struct {
	State     string
	Verifier  string
	LoginHint string
	URL       string
	IssuedAt  time.Time
}

// Initiator builds the authorization URL and opens it. The OAuth client is
// constructed at most once between two calls to Reset.
type Initiator struct {
	loader      *Loader
	clientID    string
	redirectURL string
	domain      domain.Domain
	browser     Browser
	now         func() time.Time

	mu          sync.Mutex
	client      *oauth2.Config
	constructed int
}

type Params struct {
	fx.In

	Loader       *Loader
	ClientConfig *config.ClientConfig
	GoogleConfig *config.GoogleConfig
	Domain       domain.Domain
	Browser      Browser
}

func NewInitiator(p Params) *Initiator {
	return &Initiator{
		loader:      p.Loader,
		clientID:    p.GoogleConfig.ClientID,
		redirectURL: strings.TrimSuffix(p.ClientConfig.APIBase, "/") + p.ClientConfig.CallbackPath,
		domain:      p.Domain,
		browser:     p.Browser,
		now:         time.Now,
	}
}

// Prepare starts loading the provider. It is safe to call repeatedly.
func (i *Initiator) Prepare(ctx context.Context) error {
	_, err := i.loader.Load(ctx)
	return err
}

// Ready reports whether a redirect can start without waiting.
func (i *Initiator) Ready() bool {
	return i.loader.Loaded()
}

// BeginRedirect opens the provider's consent screen for the institutional
// domain, pre-filling loginHint when it is not empty.
func (i *Initiator) BeginRedirect(ctx context.Context, loginHint string) (*PendingAuthorization, error) {
	if i.clientID == "" {
		return nil, ErrNotConfigured
	}
	provider, err := i.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	verifier := oauth2.GenerateVerifier()
	pending := &PendingAuthorization{
		State:     models.HandoffState(uuid.NewString(), verifier),
		Verifier:  verifier,
		LoginHint: loginHint,
		IssuedAt:  i.now(),
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam(constants.ParamHostedDomain, i.domain.Host),
	}
	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam(constants.ParamLoginHint, loginHint))
	}
	pending.URL = i.oauthClient(provider).AuthCodeURL(pending.State, opts...)

	logger.Info("Starting sign-in redirect",
		zap.String("state", pending.State),
		zap.Bool("login_hint", loginHint != ""),
	)
	if err := i.browser.Open(pending.URL); err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	return pending, nil
}

// Reset discards the OAuth client. The next BeginRedirect builds a new one.
func (i *Initiator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.client = nil
}

// Constructed counts OAuth client constructions.
func (i *Initiator) Constructed() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.constructed
}

func (i *Initiator) oauthClient(provider *oidc.Provider) *oauth2.Config {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.client == nil {
		i.client = &oauth2.Config{
			ClientID:    i.clientID,
			Endpoint:    provider.Endpoint(),
			RedirectURL: i.redirectURL,
			Scopes:      constants.DefaultScopes,
		}
		i.constructed++
	}
	return i.client
}

// Module provides the loader, the initiator and the system browser
var Module = fx.Module("initiator",
	fx.Provide(
		NewLoader,
		fx.Annotate(NewSystemBrowser, fx.As(new(Browser))),
		NewInitiator,
	),
)
