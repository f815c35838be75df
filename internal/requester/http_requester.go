package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// HTTPRequester sends credential-bearing requests to the auth backend. Every
// request goes through the same cookie jar, so the session cookie rides along
// automatically.
type HTTPRequester struct {
	client  *http.Client
	baseURL *url.URL
}

type HTTPRequesterParams struct {
	fx.In

	ClientConfig *config.ClientConfig
	Jar          http.CookieJar
}

// NewHTTPRequester creates a requester bound to the configured api_base.
func NewHTTPRequester(params HTTPRequesterParams) (*HTTPRequester, error) {
	base, err := url.Parse(strings.TrimSuffix(params.ClientConfig.APIBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base %q must be an absolute url", params.ClientConfig.APIBase)
	}
	return &HTTPRequester{
		client: &http.Client{
			Timeout: defaultTimeout,
			Jar:     params.Jar,
			// redirects from the auth API are never followed, a 3xx is an answer
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: base,
	}, nil
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// URL resolves path against the api base.
func (r *HTTPRequester) URL(path string) string {
	return r.baseURL.String() + "/" + strings.TrimPrefix(path, "/")
}

// Do sends method to path with body encoded as JSON (nil sends no body) and
// reads the whole response.
func (r *HTTPRequester) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("auth api request", zap.String("method", method), zap.String("url", req.URL.String()))
	return r.execute(req)
}

func (r *HTTPRequester) execute(req *http.Request) (*Response, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("Failed to close response body", zap.Error(closeErr))
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
		Headers:    resp.Header,
	}, nil
}
