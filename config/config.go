package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/habedi/waconsole/auth"
	"github.com/habedi/waconsole/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Environment variables read by Load.
const (
	EnvBaseURL              = "WACONSOLE_BASE_URL"
	EnvDBPath               = "WACONSOLE_DB_PATH"
	EnvRefreshMargin        = "WACONSOLE_REFRESH_MARGIN"
	EnvSessionCheckInterval = "WACONSOLE_SESSION_CHECK_INTERVAL"
	EnvTempRefreshInterval  = "WACONSOLE_TEMP_REFRESH_INTERVAL"
	EnvMaxRetries           = "WACONSOLE_MAX_RETRIES"
	EnvRetryDelay           = "WACONSOLE_RETRY_DELAY"
)

// Config holds the console client configuration.
type Config struct {
	DBPath string
	Auth   auth.Settings
}

// Load reads an optional .env file from the working directory and then the
// environment. Unset variables fall back to the console defaults.
func Load() (*Config, error) {
	return LoadFiles()
}

// LoadFiles is Load with explicit .env files. Missing files are ignored and
// variables already set in the environment are never overridden.
func LoadFiles(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	defaults := auth.DefaultSettings()
	s := defaults
	s.BaseURL = getEnv(EnvBaseURL, defaults.BaseURL)

	var err error
	if s.RefreshMargin, err = getDuration(EnvRefreshMargin, defaults.RefreshMargin); err != nil {
		return nil, err
	}
	if s.SessionCheckInterval, err = getDuration(EnvSessionCheckInterval, defaults.SessionCheckInterval); err != nil {
		return nil, err
	}
	if s.TemporaryRefreshInterval, err = getDuration(EnvTempRefreshInterval, defaults.TemporaryRefreshInterval); err != nil {
		return nil, err
	}
	if s.RetryDelay, err = getDuration(EnvRetryDelay, defaults.RetryDelay); err != nil {
		return nil, err
	}
	if s.MaxRetries, err = getInt(EnvMaxRetries, defaults.MaxRetries); err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath: getEnv(EnvDBPath, DefaultDBPath()),
		Auth:   s,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a user can set.
func (c *Config) Validate() error {
	if err := validation.ValidateBaseURL(c.Auth.BaseURL); err != nil {
		return err
	}
	if err := validation.ValidateRetryCount(c.Auth.MaxRetries); err != nil {
		return err
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{EnvRefreshMargin, c.Auth.RefreshMargin},
		{EnvSessionCheckInterval, c.Auth.SessionCheckInterval},
		{EnvTempRefreshInterval, c.Auth.TemporaryRefreshInterval},
		{EnvRetryDelay, c.Auth.RetryDelay},
	}
	for _, d := range durations {
		if err := validation.ValidatePositiveDuration(d.name, d.value); err != nil {
			return err
		}
	}
	return validation.ValidateNonEmptyString(EnvDBPath, c.DBPath)
}

// DefaultDBPath returns the storage file under the user's home directory.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get user home directory, using current directory")
		home = "."
	}
	return filepath.Join(home, ".waconsole", "storage.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
