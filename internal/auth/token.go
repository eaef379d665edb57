// Package auth resolves the GitHub token and attaches it to outgoing requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"stargazer/internal/models"
)

// EnvToken names the environment variable checked before the keyring
const EnvToken = "STARGAZER_GITHUB_TOKEN"

// ErrNoToken is returned when neither the environment nor the keyring holds a token
var ErrNoToken = errors.New("GitHub token not found. Run 'stg config github' or set " + EnvToken)

// Lookup retrieves the GitHub token from the environment or the system keyring
func Lookup(ctx context.Context) (string, error) {
	if token := strings.TrimSpace(os.Getenv(EnvToken)); token != "" {
		return token, nil
	}

	token, err := keyring.Get(models.KeyringServiceName, models.KeyringGitHubTokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token from keyring: %w", err)
	}
	return token, nil
}

// Save stores token in the system keyring
func Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if err := keyring.Set(models.KeyringServiceName, models.KeyringGitHubTokenKey, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// Clear removes the token from the system keyring. A missing entry is not an error.
func Clear() error {
	err := keyring.Delete(models.KeyringServiceName, models.KeyringGitHubTokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to remove token from keyring: %w", err)
	}
	return nil
}

// TokenError reports that the token could not be read, e.g. because the
// keyring is locked or its service is not running. The request it belonged
// to was never sent.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("failed to get GitHub token: %v", e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// TokenSource supplies the current token and can be told it went stale.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// FetchFunc reads a token from its backing store
type FetchFunc func(ctx context.Context) (string, error)

// CachedSource memoizes a token from a FetchFunc until Invalidate is called.
// A missing token yields "" without error and is not cached, so a token
// configured later is picked up on the next call.
type CachedSource struct {
	mu     sync.Mutex
	fetch  FetchFunc
	token  string
	cached bool
}

// NewCachedSource wraps fetch with a cache. A nil fetch uses Lookup.
func NewCachedSource(fetch FetchFunc) *CachedSource {
	if fetch == nil {
		fetch = Lookup
	}
	return &CachedSource{fetch: fetch}
}

// Token returns the cached token, reading it from the backing store on a miss.
func (c *CachedSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached {
		return c.token, nil
	}

	token, err := c.fetch(ctx)
	if errors.Is(err, ErrNoToken) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	c.token = token
	c.cached = token != ""
	return token, nil
}

// Invalidate drops the cached token
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.cached = false
}

// Transport adds the bearer token to each request and invalidates the
// source when the server answers 401.
type Transport struct {
	Source TokenSource
	Base   http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.Token(req.Context())
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TokenError{Err: err}
	}

	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base().RoundTrip(out)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		t.Source.Invalidate()
	}
	return resp, err
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
