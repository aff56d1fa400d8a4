// Package config provides centralized configuration management for the
// import service. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	AWS      AWSConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0,
	// disabled: a large import legitimately holds the connection through
	// its full retry budget)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m;
	// must cover a full import run including backoff sleeps)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// AWSConfig holds settings for the AWS-backed collaborators.
type AWSConfig struct {
	// Region is the AWS region for all clients (empty: resolved by the SDK)
	Region string `env:"AWS_REGION" envAlt:"AWS_DEFAULT_REGION"`

	// EventBusName is the EventBridge bus receiving status events
	// (empty targets the account default bus)
	EventBusName string `env:"EVENT_BUS_NAME"`

	// EventSource is the source field stamped on every published event
	// (default: bellyfed.import)
	EventSource string `env:"EVENT_SOURCE" default:"bellyfed.import"`

	// MetricsNamespace is the CloudWatch namespace for import metrics,
	// scoped per environment (default: Bellyfed/Import)
	MetricsNamespace string `env:"METRICS_NAMESPACE" default:"Bellyfed/Import"`
}

// ImportConfig holds the fixed per-run pipeline settings.
type ImportConfig struct {
	// AllowedTables is the comma-separated allow-list of destination
	// tables (required); table names outside it are rejected before any
	// write is attempted
	AllowedTables []string `env:"IMPORT_ALLOWED_TABLES" required:"true"`

	// BatchSize is the number of records per batched write (default: 25,
	// the DynamoDB BatchWriteItem ceiling)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"25"`

	// MaxRetries is the retry ceiling per batch (default: 3)
	MaxRetries int `env:"IMPORT_MAX_RETRIES" default:"3"`

	// RetryDelay is the base backoff delay; retry attempt n sleeps
	// RetryDelay * 2^n (default: 100ms)
	RetryDelay time.Duration `env:"IMPORT_RETRY_DELAY" default:"100ms"`

	// MaxConcurrent is the maximum number of parallel import runs (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a trigger waits for a run slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for the trigger endpoint (default: 30)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: json)
	Format string `env:"LOG_FORMAT" default:"json"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
