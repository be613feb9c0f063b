// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables (and an optional .env file)
// with sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Archive  ArchiveConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

	// Port is the port to listen on
	Port int `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout is the maximum duration for reading the request, body included
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"60s"`

	// WriteTimeout is the maximum duration for writing the response
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`

	// IdleTimeout is the keep-alive timeout
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// RequestTimeout is the middleware timeout for requests
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed size of one file in bytes (100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"104857600"`

	// MaxFiles is the maximum number of files in one upload request
	MaxFiles int `env:"UPLOAD_MAX_FILES" envDefault:"20"`

	// MaxConcurrent is the maximum number of uploads parsed at once
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" envDefault:"5"`

	// MaxWaitTime is how long to wait for a parse slot
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" envDefault:"30s"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// TTL is how long an idle session keeps its files
	TTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`

	// CookieName is the session cookie name
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"dataprep_session"`

	// SecureCookie sets the Secure flag (enable behind HTTPS)
	SecureCookie bool `env:"SESSION_SECURE_COOKIE" envDefault:"false"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// RequestsPerMinute is the default rate limit per IP
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" envDefault:"100"`

	// UploadLimit is requests per minute for upload endpoints
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" envDefault:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// EnableCSP enables Content-Security-Policy headers
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" envDefault:"true"`

	// RequireAPIKey protects the JSON API with an X-API-Key header
	RequireAPIKey bool `env:"REQUIRE_API_KEY" envDefault:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS" envSeparator:","`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// DatabaseConfig holds the optional history database. Operation history is
// only persisted when URL is set.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	URL string `env:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"10"`

	// MinConns is the minimum number of connections to keep open
	MinConns int `env:"DB_MIN_CONNS" envDefault:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ArchiveConfig holds the optional S3-compatible export archive. Exports are
// only archived when Endpoint is set.
type ArchiveConfig struct {
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Bucket    string `env:"S3_BUCKET" envDefault:"dataprep-exports"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"false"`

	// Timeout bounds a single archive upload
	Timeout time.Duration `env:"S3_TIMEOUT" envDefault:"30s"`
}

// Enabled reports whether an archive endpoint is configured.
func (a ArchiveConfig) Enabled() bool { return a.Endpoint != "" }

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Path is where metrics are served
	Path string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
