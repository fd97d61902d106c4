// Package config loads application settings from environment variables,
// applies defaults, and validates everything on startup so that a bad
// setting fails fast instead of surfacing mid-run.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Pipeline PipelineConfig
	Session  SessionConfig
	Export   ExportConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight runs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// DatabaseConfig holds the optional Postgres connection used by the sink.
// With no URL the sink endpoint is disabled.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string for exported tables
	URL string `env:"EXPORT_DATABASE_URL" envAlt:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// UploadConfig holds input file and run admission settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of runs in parallel (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single run from parse to final report (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// RunLimit is requests per minute for endpoints that start runs (default: 20)
	RunLimit int `env:"RATE_LIMIT_RUNS" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// CORSOrigins is a comma-separated list of origins allowed to call the API
	CORSOrigins []string `env:"CORS_ORIGINS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// PipelineConfig tunes transformation runs.
type PipelineConfig struct {
	// PreviewRows is the number of rows kept in each stage preview (default: 10)
	PreviewRows int `env:"PIPELINE_PREVIEW_ROWS" default:"10"`

	// DiffTimeout bounds each stage preview diff; 0 disables diffs (default: 200ms)
	DiffTimeout time.Duration `env:"PIPELINE_DIFF_TIMEOUT" default:"200ms"`

	// ExprTimeout bounds compilation of a custom expression (default: 2s)
	ExprTimeout time.Duration `env:"PIPELINE_EXPR_TIMEOUT" default:"2s"`

	// MaxRows is the largest table a run accepts (default: 1000000)
	MaxRows int `env:"PIPELINE_MAX_ROWS" default:"1000000"`
}

// SessionConfig controls how long run results stay downloadable.
type SessionConfig struct {
	// ResultTTL is how long a finished run is kept (default: 30m)
	ResultTTL time.Duration `env:"SESSION_RESULT_TTL" default:"30m"`

	// ReapInterval is how often expired results are purged (default: 1m)
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" default:"1m"`

	// MaxResults caps the number of stored results (default: 100)
	MaxResults int `env:"SESSION_MAX_RESULTS" default:"100"`
}

// ExportConfig holds download defaults.
type ExportConfig struct {
	// DefaultFormat is used when a download names no format: csv, json, parquet (default: csv)
	DefaultFormat string `env:"EXPORT_DEFAULT_FORMAT" default:"csv"`

	// IncludeIndex writes row labels as a leading column (default: false)
	IncludeIndex bool `env:"EXPORT_INCLUDE_INDEX" default:"false"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
