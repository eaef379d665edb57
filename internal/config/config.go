// Package config loads and validates the optional stargazer YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"stargazer/internal/remote"
)

// FileName is the config file name inside the stargazer config directory
const FileName = "config.yaml"

// Config holds the tunables for syncing and querying. Every field has a
// default, so the file is optional.
type Config struct {
	// PageSize is the number of repositories requested per page (1-100).
	PageSize int `yaml:"page_size"`

	// MaxPages caps how many pages one sync may walk.
	MaxPages int `yaml:"max_pages"`

	// RequestTimeout bounds a single HTTP request to GitHub.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Retry RetryConfig `yaml:"retry"`

	// RateLimitWait is the pause after a rate-limit response. It is shortened
	// when GitHub reports an earlier reset.
	RateLimitWait time.Duration `yaml:"rate_limit_wait"`

	// SearchDebounce is the quiet period before a typed search runs.
	SearchDebounce time.Duration `yaml:"search_debounce"`

	// APIBaseURL points at a GitHub Enterprise API, e.g. "https://ghe.example.com/api/v3/".
	APIBaseURL string `yaml:"api_base_url"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// RetryConfig controls exponential backoff for transient failures
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "stargazer".
	ServiceName string `yaml:"service_name"`

	// Headers are sent as gRPC metadata on every OTLP request, e.g.
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	retry := remote.DefaultRetryPolicy()
	return &Config{
		PageSize:       remote.MaxPageSize,
		MaxPages:       1000,
		RequestTimeout: remote.DefaultTimeout,
		Retry: RetryConfig{
			MaxAttempts:     retry.MaxAttempts,
			InitialInterval: retry.InitialInterval,
			MaxInterval:     retry.MaxInterval,
		},
		RateLimitWait:  retry.RateLimitWait,
		SearchDebounce: 300 * time.Millisecond,
	}
}

// DefaultPath returns the default config file path under dir
func DefaultPath(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads and validates the configuration file at path. A missing or
// empty file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %q: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// RetryPolicy converts the retry settings for the GitHub client
func (c *Config) RetryPolicy() remote.RetryPolicy {
	return remote.RetryPolicy{
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
		RateLimitWait:   c.RateLimitWait,
	}
}

// validate fills zero values with defaults and rejects out-of-range settings.
func (c *Config) validate() error {
	def := Default()

	if c.PageSize == 0 {
		c.PageSize = def.PageSize
	}
	if c.PageSize < 1 || c.PageSize > remote.MaxPageSize {
		return fmt.Errorf("page_size %d must be between 1 and %d", c.PageSize, remote.MaxPageSize)
	}

	if c.MaxPages == 0 {
		c.MaxPages = def.MaxPages
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages %d must be positive", c.MaxPages)
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("request_timeout %v is too short (minimum 1s)", c.RequestTimeout)
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("retry.max_attempts %d must be between 1 and 10", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialInterval == 0 {
		c.Retry.InitialInterval = def.Retry.InitialInterval
	}
	if c.Retry.MaxInterval == 0 {
		c.Retry.MaxInterval = def.Retry.MaxInterval
	}
	if c.Retry.InitialInterval < 0 || c.Retry.MaxInterval < 0 {
		return fmt.Errorf("retry intervals must not be negative")
	}
	if c.Retry.InitialInterval > c.Retry.MaxInterval {
		return fmt.Errorf("retry.initial_interval %v exceeds retry.max_interval %v",
			c.Retry.InitialInterval, c.Retry.MaxInterval)
	}

	if c.RateLimitWait == 0 {
		c.RateLimitWait = def.RateLimitWait
	}
	if c.RateLimitWait < 0 || c.RateLimitWait > time.Hour {
		return fmt.Errorf("rate_limit_wait %v must be between 0 and 1h", c.RateLimitWait)
	}

	if c.SearchDebounce < 0 || c.SearchDebounce > 5*time.Second {
		return fmt.Errorf("search_debounce %v must be between 0 and 5s", c.SearchDebounce)
	}

	if c.APIBaseURL != "" {
		u, err := url.ParseRequestURI(c.APIBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("api_base_url %q must be a valid http or https URL", c.APIBaseURL)
		}
	}

	if c.Telemetry != nil && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
	}

	return nil
}
