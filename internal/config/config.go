// Package config provides centralized configuration management for the
// importer service. It loads settings from environment variables with
// sensible defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Import  ImportConfig
	Sink    SinkConfig
	Rate    RateLimitConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// MaxFileSize is the source file size ceiling in bytes (default: 5 MiB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"5242880"`

	// BatchSize is the number of records submitted per batch (default: 10)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"10"`

	// Workers bounds concurrent in-flight batches; 1 means sequential (default: 1)
	Workers int `env:"IMPORT_WORKERS" default:"1"`

	// MaxConcurrentSessions bounds parallel import sessions (default: 5)
	MaxConcurrentSessions int `env:"IMPORT_MAX_CONCURRENT_SESSIONS" default:"5"`

	// SessionWaitTime is how long to wait for a session slot (default: 30s)
	SessionWaitTime time.Duration `env:"IMPORT_SESSION_WAIT_TIME" default:"30s"`

	// SessionTTL is how long idle sessions are retained (default: 30m)
	SessionTTL time.Duration `env:"IMPORT_SESSION_TTL" default:"30m"`
}

// SinkConfig holds record-persistence collaborator settings.
type SinkConfig struct {
	// Mode selects the sink implementation: "http" or "postgres" (default: http)
	Mode string `env:"SINK_MODE" default:"http"`

	// Endpoint is the record service URL, required in http mode
	Endpoint string `env:"SINK_ENDPOINT"`

	// AuthToken is the bearer token sent to the record service
	AuthToken string `env:"SINK_AUTH_TOKEN"`

	// Gzip enables request body compression in http mode (default: false)
	Gzip bool `env:"SINK_GZIP" default:"false"`

	// Timeout is the per-request timeout in http mode (default: 30s)
	Timeout time.Duration `env:"SINK_TIMEOUT" default:"30s"`

	// MaxRetries is the retry budget for transient failures (default: 3)
	MaxRetries int `env:"SINK_MAX_RETRIES" default:"3"`

	// Backoff is the initial retry backoff (default: 500ms)
	Backoff time.Duration `env:"SINK_BACKOFF" default:"500ms"`

	// MaxBackoff caps the exponential backoff (default: 10s)
	MaxBackoff time.Duration `env:"SINK_MAX_BACKOFF" default:"10s"`

	// DatabaseURL is the PostgreSQL connection string, required in postgres mode.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the pool's maximum connection count (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the per-IP limit (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks that the configuration is coherent.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.BatchSize <= 0 {
		errs = append(errs, "IMPORT_BATCH_SIZE must be positive")
	}
	if c.Import.Workers <= 0 {
		errs = append(errs, "IMPORT_WORKERS must be positive")
	}
	if c.Import.MaxConcurrentSessions <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT_SESSIONS must be positive")
	}
	if c.Import.SessionWaitTime <= 0 {
		errs = append(errs, "IMPORT_SESSION_WAIT_TIME must be positive")
	}
	if c.Import.SessionTTL <= 0 {
		errs = append(errs, "IMPORT_SESSION_TTL must be positive")
	}

	switch strings.ToLower(c.Sink.Mode) {
	case "http":
		if c.Sink.Endpoint == "" {
			errs = append(errs, "SINK_ENDPOINT is required when SINK_MODE=http")
		}
	case "postgres":
		if c.Sink.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when SINK_MODE=postgres")
		}
		if c.Sink.MaxConns < c.Sink.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Sink.MaxConns, c.Sink.MinConns))
		}
		if c.Sink.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("SINK_MODE (%q) must be one of: http, postgres", c.Sink.Mode))
	}
	if c.Sink.MaxRetries < 0 {
		errs = append(errs, "SINK_MAX_RETRIES must be non-negative")
	}
	if c.Sink.Timeout <= 0 {
		errs = append(errs, "SINK_TIMEOUT must be positive")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe representation of the config for logging.
// Secrets and connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Import: {MaxFileSize: %d, BatchSize: %d, Workers: %d, MaxConcurrentSessions: %d}, ",
		c.Import.MaxFileSize, c.Import.BatchSize, c.Import.Workers, c.Import.MaxConcurrentSessions))
	b.WriteString(fmt.Sprintf("Sink: {Mode: %q, Endpoint: %q, AuthToken: [MASKED], DatabaseURL: [MASKED]}, ",
		c.Sink.Mode, c.Sink.Endpoint))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
