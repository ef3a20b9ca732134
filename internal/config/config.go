// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and SCROLLDOWN_* env vars on top of New().
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Data modes select the play-by-play source.
const (
	DataModeMock = "mock"
	DataModeAPI  = "api"
)

// DefaultAPIBaseURL is used in api mode when no base URL is configured.
const DefaultAPIBaseURL = "http://localhost:8000"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataMode is either "mock" (generated PBP) or "api" (remote backend).
	DataMode string `koanf:"data_mode"`

	// APIBaseURL is the backend root used in api mode.
	APIBaseURL string `koanf:"api_base_url"`

	// MockLatencyMS is the simulated latency of the mock source.
	MockLatencyMS int `koanf:"mock_latency_ms"`

	// FetchTimeoutMS bounds a single PBP request in api mode.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// Redis cache; an empty RedisAddr disables caching.
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	// SessionLimit caps the number of live per-session loaders.
	SessionLimit int `koanf:"session_limit"`

	// PrefetchQueueSize bounds the in-memory prefetch queue.
	PrefetchQueueSize int `koanf:"prefetch_queue_size"`

	// WorkerCount sets the number of prefetch workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the prefetch deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		DataMode:          DataModeMock,
		MockLatencyMS:     150,
		FetchTimeoutMS:    5_000,
		CacheTTLSeconds:   300,
		SessionLimit:      10_000,
		PrefetchQueueSize: 1_024,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        10_000,
	}
}

// BaseURL returns the configured API base URL, or the default for api mode.
func (c *Config) BaseURL() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	return DefaultAPIBaseURL
}

// MockLatency returns MockLatencyMS as a duration.
func (c *Config) MockLatency() time.Duration {
	return time.Duration(c.MockLatencyMS) * time.Millisecond
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks the values Load cannot sanity-check by type alone.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataMode != DataModeMock && c.DataMode != DataModeAPI:
		return fmt.Errorf("%w: %w %q, want %q or %q", ErrInvalidConfig, ErrUnknownDataMode, c.DataMode, DataModeMock, DataModeAPI)
	case c.MockLatencyMS < 0:
		return fmt.Errorf("%w: mock_latency_ms must not be negative", ErrInvalidConfig)
	case c.FetchTimeoutMS <= 0:
		return fmt.Errorf("%w: fetch_timeout_ms must be positive", ErrInvalidConfig)
	case c.SessionLimit <= 0:
		return fmt.Errorf("%w: session_limit must be positive", ErrInvalidConfig)
	case c.PrefetchQueueSize <= 0:
		return fmt.Errorf("%w: prefetch_queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	}
	return nil
}
