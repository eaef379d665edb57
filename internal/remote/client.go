// Package remote fetches the authenticated user's starred repositories from
// the GitHub REST API, one page at a time.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v63/github"
	"github.com/google/go-querystring/query"

	"stargazer/internal/auth"
	"stargazer/internal/models"
)

const (
	// MaxPageSize is the largest page GitHub serves for user/starred
	MaxPageSize = 100
	// DefaultTimeout bounds a single HTTP request
	DefaultTimeout = 30 * time.Second

	// starMediaType makes GitHub wrap each repository with its starred_at time
	starMediaType = "application/vnd.github.star+json"
)

// Options configures a Client
type Options struct {
	// BaseURL overrides https://api.github.com/ (tests, GitHub Enterprise).
	BaseURL string
	Tokens  auth.TokenSource
	Timeout time.Duration
	Retry   RetryPolicy
	Logger  *slog.Logger
	// Transport overrides the base HTTP transport below the auth layer.
	Transport http.RoundTripper
}

// Client is the remote collection source for starred repositories
type Client struct {
	gh     *github.Client
	retry  RetryPolicy
	logger *slog.Logger
}

// NewClient builds a Client. A nil Tokens sends requests unauthenticated.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	var transport http.RoundTripper = base
	if opts.Tokens != nil {
		transport = &auth.Transport{Source: opts.Tokens, Base: base}
	}

	httpClient := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
	gh := github.NewClient(httpClient)

	if opts.BaseURL != "" {
		baseURL := opts.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", opts.BaseURL, err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:     gh,
		retry:  opts.Retry.withDefaults(),
		logger: opts.Logger,
	}, nil
}

// ClampPageSize limits n to 1..MaxPageSize
func ClampPageSize(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// FetchPage returns one page of starred repositories, newest star first.
// Pages are 1-based. Transient failures are retried per the client's
// RetryPolicy; the returned error is always an *Error.
func (c *Client) FetchPage(ctx context.Context, page, perPage int) ([]models.Repository, error) {
	if page < 1 {
		page = 1
	}
	perPage = ClampPageSize(perPage)

	return withRetry(ctx, c.retry, c.logger.With("page", page), func() ([]models.Repository, error) {
		return c.fetchPage(ctx, page, perPage)
	})
}

type starredItem struct {
	StarredAt json.RawMessage    `json:"starred_at"`
	Repo      *github.Repository `json:"repo"`
}

func (c *Client) fetchPage(ctx context.Context, page, perPage int) ([]models.Repository, error) {
	opts := &github.ActivityListStarredOptions{
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	params, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := c.gh.NewRequest(http.MethodGet, "user/starred?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", starMediaType)

	var items []starredItem
	if _, err := c.gh.Do(ctx, req, &items); err != nil {
		return nil, err
	}

	repos := make([]models.Repository, 0, len(items))
	for _, item := range items {
		if item.Repo == nil {
			continue
		}
		repo := ToModel(item.Repo)
		repo.StarredAt = parseStarredAt(item.StarredAt)
		repos = append(repos, repo)
	}
	return repos, nil
}

// parseStarredAt returns nil when the value is missing or malformed
func parseStarredAt(raw json.RawMessage) *int64 {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return models.MillisPtr(t)
}

// ToModel maps a go-github repository onto the local model. StarredAt and
// the local-only fields are left zero.
func ToModel(r *github.Repository) models.Repository {
	repo := models.Repository{
		ID:              r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		OwnerLogin:      r.GetOwner().GetLogin(),
		OwnerAvatarURL:  r.GetOwner().GetAvatarURL(),
		HTMLURL:         r.GetHTMLURL(),
		Description:     r.GetDescription(),
		Homepage:        r.GetHomepage(),
		Language:        r.GetLanguage(),
		LicenseName:     r.GetLicense().GetName(),
		Topics:          models.StringSlice(r.Topics),
		DefaultBranch:   r.GetDefaultBranch(),
		Visibility:      r.GetVisibility(),
		Size:            r.GetSize(),
		StargazersCount: r.GetStargazersCount(),
		WatchersCount:   r.GetWatchersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		Fork:            r.GetFork(),
		RepoCreatedAt:   r.GetCreatedAt().Time.UTC(),
		RepoUpdatedAt:   r.GetUpdatedAt().Time.UTC(),
	}
	if repo.Topics == nil {
		repo.Topics = models.StringSlice{}
	}
	if r.PushedAt != nil {
		pushed := r.PushedAt.Time.UTC()
		repo.RepoPushedAt = &pushed
	}
	return repo
}

// CurrentUser returns the authenticated user and the rate limit snapshot from
// the same response.
func (c *Client) CurrentUser(ctx context.Context) (*github.User, github.Rate, error) {
	user, resp, err := c.gh.Users.Get(ctx, "")
	var rate github.Rate
	if resp != nil {
		rate = resp.Rate
	}
	if err != nil {
		return nil, rate, Classify(err)
	}
	return user, rate, nil
}
