package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagging-ai/tagboard/pkg/models"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tagboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("TAGBOARD_SESSION_DIR", "/tmp/tagboard-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "/api/analyze/batch-analyze", cfg.Backend.Paths.Batch)
	assert.Equal(t, "/api/analyze/history", cfg.Backend.Paths.History)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Dashboard.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Dashboard.AllowedOrigins)
	assert.Equal(t, "/tmp/tagboard-test", cfg.Session.Dir)
	assert.False(t, cfg.Archive.Enabled())
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoadFromYAML(t *testing.T) {
	path := writeYAML(t, `
backend:
  base_url: "https://api.tagging.example/"
  timeout: "5s"
  paths:
    analyze: "/v2/analyze"
log:
  level: debug
  format: json
session:
  dir: /var/lib/tagboard
archive:
  dsn: postgres://u:p@localhost:5432/tagboard
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.tagging.example", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "/v2/analyze", cfg.Backend.Paths.Analyze)
	assert.Equal(t, "/api/auth/login", cfg.Backend.Paths.Login)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Archive.Enabled())
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, `
backend:
  base_url: "https://from-yaml.example"
session:
  dir: /tmp/x
`)
	t.Setenv("TAGBOARD_BACKEND_URL", "https://from-env.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example", cfg.Backend.BaseURL)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Backend:   BackendConfig{BaseURL: "http://localhost:8000", Timeout: time.Second, RateBurst: 1},
			Log:       LogConfig{Level: "info", Format: "json"},
			Dashboard: DashboardConfig{Port: 8080},
			Session:   SessionConfig{Dir: "/tmp"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad scheme", func(c *Config) { c.Backend.BaseURL = "ftp://x" }, "backend.base_url"},
		{"no host", func(c *Config) { c.Backend.BaseURL = "http://" }, "backend.base_url"},
		{"zero timeout", func(c *Config) { c.Backend.Timeout = 0 }, "backend.timeout"},
		{"zero burst", func(c *Config) { c.Backend.RateBurst = 0 }, "backend.rate_burst"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad port", func(c *Config) { c.Dashboard.Port = 70000 }, "dashboard.port"},
		{"storage without keys", func(c *Config) { c.Storage.Endpoint = "minio:9000" }, "storage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithBaseURL(t *testing.T) {
	cfg := Config{Backend: BackendConfig{BaseURL: "http://a"}}

	same, err := cfg.WithBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "http://a", same.Backend.BaseURL)

	other, err := cfg.WithBaseURL("https://b.example/")
	require.NoError(t, err)
	assert.Equal(t, "https://b.example", other.Backend.BaseURL)
	assert.Equal(t, "http://a", cfg.Backend.BaseURL)

	_, err = cfg.WithBaseURL("not a url")
	assert.Error(t, err)
}

func TestSettingsFile(t *testing.T) {
	f := NewSettingsFile(t.TempDir())

	s, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), s, "missing file yields defaults")

	s.APIEndpoint = "https://nlp.example.com"
	s.Notifications.BatchComplete = false
	require.NoError(t, f.Save(s))

	got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, s, got)

	s.APIEndpoint = "ftp://nope"
	assert.Error(t, f.Save(s))
}

func TestSettingsFileMalformed(t *testing.T) {
	f := NewSettingsFile(t.TempDir())
	require.NoError(t, os.WriteFile(f.Path, []byte("save_history: [oops"), 0o600))

	s, err := f.Load()
	require.Error(t, err)
	assert.Equal(t, models.DefaultSettings(), s)
}
