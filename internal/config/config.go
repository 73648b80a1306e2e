// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `envconfig:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 3m)
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"3m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string, required for the postgres driver.
	// DB_URL is read when DATABASE_URL is unset.
	URL string `envconfig:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `envconfig:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `envconfig:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoCreate creates the record table at startup when missing (default: true)
	AutoCreate bool `envconfig:"DB_AUTO_CREATE" default:"true"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	// Driver is postgres or memory (default: postgres)
	Driver string `envconfig:"STORE_DRIVER" default:"postgres"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	// SourceURL is the JSON dataset to import
	SourceURL string `envconfig:"IMPORT_SOURCE_URL" default:"https://coralvanda.github.io/pokemon_data.json"`

	// FetchTimeout bounds the HTTP fetch (default: 30s)
	FetchTimeout time.Duration `envconfig:"IMPORT_FETCH_TIMEOUT" default:"30s"`

	// MaxBytes is the largest accepted response body (default: 10MiB)
	MaxBytes int64 `envconfig:"IMPORT_MAX_BYTES" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel imports (default: 1)
	MaxConcurrent int `envconfig:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWait is how long to wait for an import slot (default: 5s)
	MaxWait time.Duration `envconfig:"IMPORT_MAX_WAIT" default:"5s"`

	// Timeout bounds fetch, mapping and insert once a slot is held; the
	// slot wait counts against MaxWait instead (default: 2m)
	Timeout time.Duration `envconfig:"IMPORT_TIMEOUT" default:"2m"`
}

// Deadline is the longest an import request can take: the slot wait plus
// the import itself.
func (c ImportConfig) Deadline() time.Duration {
	return c.MaxWait + c.Timeout
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `envconfig:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for the import endpoint (default: 5)
	ImportLimit int `envconfig:"RATE_LIMIT_IMPORT" default:"5"`

	// RedisURL shares counters across instances; in-memory when empty
	RedisURL string `envconfig:"RATE_LIMIT_REDIS_URL"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs or IPs
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
