package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the loaded configuration and fills derived values.
// Load calls it automatically.
func (c *Config) Validate() error {
	if err := validateBaseURL(c.Backend.BaseURL); err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be > 0 (got %s)", c.Backend.Timeout)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend.rate_limit must be >= 0 (got %v)", c.Backend.RateLimit)
	}
	if c.Backend.RateBurst < 1 {
		return fmt.Errorf("backend.rate_burst must be >= 1 (got %d)", c.Backend.RateBurst)
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be one of %s (got %q)", strings.Join(logLevels, ", "), c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be json or console (got %q)", c.Log.Format)
	}

	if c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range (got %d)", c.Dashboard.Port)
	}

	if c.Storage.Enabled() && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("storage: access_key and secret_key are required when endpoint is set")
	}

	if c.Session.Dir == "" {
		dir, err := defaultSessionDir()
		if err != nil {
			return fmt.Errorf("session.dir: %w", err)
		}
		c.Session.Dir = dir
	}

	return nil
}

// WithBaseURL returns a copy whose backend points at base, used when the
// user's settings override the configured endpoint.
func (c Config) WithBaseURL(base string) (Config, error) {
	if base == "" {
		return c, nil
	}
	if err := validateBaseURL(base); err != nil {
		return c, fmt.Errorf("api_endpoint: %w", err)
	}
	c.Backend.BaseURL = strings.TrimRight(base, "/")
	return c, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https (got %q)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty (got %q)", raw)
	}
	return nil
}

func defaultSessionDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "tagboard"), nil
}
