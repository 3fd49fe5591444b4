package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file
// does not exist. The CLI works without a config file.
func LoadOrDefault(path string) (*AppConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.URL == "" {
		cfg.API.URL = os.Getenv("PREDICT_API_URL")
	}
	if cfg.API.URL == "" {
		cfg.API.URL = "http://localhost:8000"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "file"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = defaultSessionPath()
	}
	if cfg.Session.Profile == "" {
		cfg.Session.Profile = "default"
	}

	if cfg.Polling.InitialDelay == 0 {
		cfg.Polling.InitialDelay = 2 * time.Second
	}
	if cfg.Polling.BaseDelay == 0 {
		cfg.Polling.BaseDelay = 2 * time.Second
	}
	if cfg.Polling.MaxDelay == 0 {
		cfg.Polling.MaxDelay = 10 * time.Second
	}
	if cfg.Polling.Multiplier == 0 {
		cfg.Polling.Multiplier = 1.5
	}
	if cfg.Polling.ErrorRetryDelay == 0 {
		cfg.Polling.ErrorRetryDelay = 5 * time.Second
	}
	if cfg.Polling.MaxErrorRetries == nil {
		retries := 3
		cfg.Polling.MaxErrorRetries = &retries
	}

	if cfg.FetchRetry.MaxAttempts == 0 {
		cfg.FetchRetry.MaxAttempts = 3
	}
	if cfg.FetchRetry.Delay == 0 {
		cfg.FetchRetry.Delay = time.Second
	}

	if cfg.Balance.RetryDelay == 0 {
		cfg.Balance.RetryDelay = 3 * time.Second
	}

	if cfg.History.RefreshInterval == 0 {
		cfg.History.RefreshInterval = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".predictctl-session.yaml"
	}
	return filepath.Join(dir, "predictctl", "session.yaml")
}
