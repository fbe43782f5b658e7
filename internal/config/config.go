// Package config loads tagboard configuration from YAML and the environment.
package config

import "time"

// Config is the root application configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
}

// BackendConfig points at the analysis backend.
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"TAGBOARD_BACKEND_URL"        env-default:"http://localhost:8000"`
	Timeout   time.Duration `yaml:"timeout"    env:"TAGBOARD_BACKEND_TIMEOUT"    env-default:"60s"`
	RateLimit float64       `yaml:"rate_limit" env:"TAGBOARD_BACKEND_RATE_LIMIT" env-default:"10"`
	RateBurst int           `yaml:"rate_burst" env:"TAGBOARD_BACKEND_RATE_BURST" env-default:"5"`
	Paths     PathsConfig   `yaml:"paths"`
}

// PathsConfig holds the backend endpoint paths.
type PathsConfig struct {
	Login    string `yaml:"login"    env:"TAGBOARD_PATH_LOGIN"    env-default:"/api/auth/login"`
	Register string `yaml:"register" env:"TAGBOARD_PATH_REGISTER" env-default:"/api/auth/register"`
	Analyze  string `yaml:"analyze"  env:"TAGBOARD_PATH_ANALYZE"  env-default:"/api/analyze"`
	Batch    string `yaml:"batch"    env:"TAGBOARD_PATH_BATCH"    env-default:"/api/analyze/batch-analyze"`
	History  string `yaml:"history"  env:"TAGBOARD_PATH_HISTORY"  env-default:"/api/analyze/history"`
	Export   string `yaml:"export"   env:"TAGBOARD_PATH_EXPORT"   env-default:"/api/analyze/export/excel"`
}

// SessionConfig controls where the client-readable session lives.
type SessionConfig struct {
	Dir string `yaml:"dir" env:"TAGBOARD_SESSION_DIR"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"TAGBOARD_LOG_LEVEL"  env-default:"warn"`
	Format string `yaml:"format" env:"TAGBOARD_LOG_FORMAT" env-default:"console"`
}

// DashboardConfig holds the web dashboard settings.
type DashboardConfig struct {
	Host           string        `yaml:"host"            env:"TAGBOARD_DASHBOARD_HOST"            env-default:"127.0.0.1"`
	Port           int           `yaml:"port"            env:"TAGBOARD_DASHBOARD_PORT"            env-default:"8080"`
	CookieSecure   bool          `yaml:"cookie_secure"   env:"TAGBOARD_DASHBOARD_COOKIE_SECURE"   env-default:"false"`
	CookieTTL      time.Duration `yaml:"cookie_ttl"      env:"TAGBOARD_DASHBOARD_COOKIE_TTL"      env-default:"24h"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"TAGBOARD_DASHBOARD_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

// ArchiveConfig enables the local Postgres copy of confirmed records.
type ArchiveConfig struct {
	DSN string `yaml:"dsn" env:"TAGBOARD_ARCHIVE_DSN"`
}

// StorageConfig configures S3-compatible upload of exports.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"   env:"TAGBOARD_STORAGE_ENDPOINT"`
	Region    string `yaml:"region"     env:"TAGBOARD_STORAGE_REGION"     env-default:"us-east-1"`
	Bucket    string `yaml:"bucket"     env:"TAGBOARD_STORAGE_BUCKET"     env-default:"tagboard-exports"`
	AccessKey string `yaml:"access_key" env:"TAGBOARD_STORAGE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"TAGBOARD_STORAGE_SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl"    env:"TAGBOARD_STORAGE_USE_SSL"    env-default:"true"`
}

// AuthConfig enables signature verification of stored tokens.
type AuthConfig struct {
	JWKSURL string `yaml:"jwks_url" env:"TAGBOARD_AUTH_JWKS_URL"`
}

// Enabled reports whether a DSN is configured.
func (c ArchiveConfig) Enabled() bool {
	return c.DSN != ""
}

// Enabled reports whether uploads have an endpoint to go to.
func (c StorageConfig) Enabled() bool {
	return c.Endpoint != ""
}
