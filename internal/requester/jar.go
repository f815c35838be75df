package requester

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/siba-ai/siba-chat/internal/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileJar is a cookie jar that mirrors the cookies of one origin to a YAML
// file, so the terminal client keeps its server session across runs the way
// a browser does. Cookies for any other origin live in memory only.
type FileJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	base    *url.URL
	path    string
	cookies map[string]storedCookie
	now     func() time.Time
}

// NewFileJar opens (or lazily creates) the jar file at path for baseURL.
// An unreadable or foreign file is ignored and overwritten on the next save.
func NewFileJar(baseURL, path string) (*FileJar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	j := &FileJar{
		jar:     jar,
		base:    base,
		path:    path,
		cookies: make(map[string]storedCookie),
		now:     time.Now,
	}
	if err := j.load(); err != nil {
		logger.Warn("Ignoring unreadable session file", zap.String("path", path), zap.Error(err))
	}
	return j, nil
}

func (j *FileJar) load() error {
	if j.path == "" {
		return nil
	}
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var f jarFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}
	if f.BaseURL != j.base.String() {
		return nil
	}

	var restored []*http.Cookie
	for _, c := range f.Cookies {
		if !c.Expires.IsZero() && c.Expires.Before(j.now()) {
			continue
		}
		j.cookies[c.Name] = c
		restored = append(restored, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	j.jar.SetCookies(j.base, restored)
	return nil
}

// SetCookies implements http.CookieJar.
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	if u.Scheme != j.base.Scheme || u.Host != j.base.Host || len(cookies) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		expired := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(j.now()))
		if expired {
			delete(j.cookies, c.Name)
			continue
		}
		sc := storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if c.MaxAge > 0 {
			sc.Expires = j.now().Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.cookies[c.Name] = sc
	}
	if err := j.saveLocked(); err != nil {
		logger.Warn("Failed to persist session cookies", zap.String("path", j.path), zap.Error(err))
	}
}

// Cookies implements http.CookieJar.
func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Forget drops every cookie of the base origin, in memory and on disk.
func (j *FileJar) Forget() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	expired := make([]*http.Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		expired = append(expired, &http.Cookie{Name: c.Name, Path: c.Path, Domain: c.Domain, MaxAge: -1})
	}
	j.jar.SetCookies(j.base, expired)
	j.cookies = make(map[string]storedCookie)
	return j.saveLocked()
}

// Names lists the persisted cookie names, for diagnostics and tests.
func (j *FileJar) Names() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, 0, len(j.cookies))
	for name := range j.cookies {
		names = append(names, name)
	}
	return names
}

func (j *FileJar) saveLocked() error {
	if j.path == "" {
		return nil
	}
	f := jarFile{BaseURL: j.base.String()}
	for _, c := range j.cookies {
		f.Cookies = append(f.Cookies, c)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return err
	}
	// the file holds a bearer credential
	return os.WriteFile(j.path, data, 0o600)
}
