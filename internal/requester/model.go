package requester

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// storedCookie is the on-disk form of a cookie kept by FileJar.
type storedCookie struct {
	Name     string    `yaml:"name"`
	Value    string    `yaml:"value"`
	Path     string    `yaml:"path,omitempty"`
	Domain   string    `yaml:"domain,omitempty"`
	Expires  time.Time `yaml:"expires,omitempty"`
	Secure   bool      `yaml:"secure,omitempty"`
	HTTPOnly bool      `yaml:"http_only,omitempty"`
}

type jarFile struct {
	BaseURL string         `yaml:"base_url"`
	Cookies []storedCookie `yaml:"cookies"`
}
