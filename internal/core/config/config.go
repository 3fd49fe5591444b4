package config

import (
	"time"

	redisclient "github.com/vietddude/predictctl/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API        APIConfig          `yaml:"api"`
	Session    SessionConfig      `yaml:"session"`
	Redis      redisclient.Config `yaml:"redis"`
	Polling    PollingConfig      `yaml:"polling"`
	FetchRetry FetchRetryConfig   `yaml:"fetch_retry"`
	Balance    BalanceConfig      `yaml:"balance"`
	History    HistoryConfig      `yaml:"history"`
	Logging    LoggingConfig      `yaml:"logging"`
	Metrics    MetricsConfig      `yaml:"metrics"`
}

// APIConfig holds settings for the prediction service.
type APIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig selects where the bearer token is kept.
type SessionConfig struct {
	Backend string        `yaml:"backend"` // file, redis, memory
	Path    string        `yaml:"path"`    // file backend only
	Profile string        `yaml:"profile"` // redis key suffix
	TTL     time.Duration `yaml:"ttl"`     // redis backend only, 0 = no expiry
}

// PollingConfig drives the status poll scheduler.
type PollingConfig struct {
	InitialDelay    time.Duration `yaml:"initial_delay"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	Multiplier      float64       `yaml:"multiplier"`
	ErrorRetryDelay time.Duration `yaml:"error_retry_delay"`
	MaxErrorRetries *int          `yaml:"max_error_retries"` // nil = default, 0 = no retries
}

// FetchRetryConfig drives retries of idempotent reads.
type FetchRetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

// BalanceConfig holds the balance reload policy.
type BalanceConfig struct {
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// HistoryConfig holds the watch-mode history reload interval.
type HistoryConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig holds the watch-mode metrics server settings.
type MetricsConfig struct {
	Port int `yaml:"port"` // 0 = disabled
}
