// Package config provides configuration management for autoimport.
package config

import (
	"time"
)

// Config is the root configuration structure for autoimport.
type Config struct {
	Configurations ConfigurationsConfig `mapstructure:"configurations"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Execution      ExecutionConfig      `mapstructure:"execution"`
	Handlers       HandlersConfig       `mapstructure:"handlers"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ConfigurationsConfig tells autoimport where to find configuration documents.
type ConfigurationsConfig struct {
	// Directory holding configuration documents
	Path string `mapstructure:"path"`

	// Glob matched against file names inside Path
	Pattern string `mapstructure:"pattern"`

	// Reload configurations when files change
	Watch bool `mapstructure:"watch"`

	// Quiet period before a change triggers a reload
	Debounce time.Duration `mapstructure:"debounce"`
}

// DatabaseConfig holds settings for the execution history database.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string `mapstructure:"path"`

	// Enable WAL mode (recommended)
	WALMode bool `mapstructure:"wal_mode"`

	// Cache size in KB (negative for KB, positive for pages)
	CacheSize int `mapstructure:"cache_size"`

	// Busy timeout in milliseconds
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`

	// Maximum open connections
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// Maximum idle connections
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

// ExecutionConfig holds settings for running action sets.
type ExecutionConfig struct {
	// Upper bound for a single run; 0 disables the limit
	RunTimeout time.Duration `mapstructure:"run_timeout"`

	// Store every executed action in the history database
	RecordHistory bool `mapstructure:"record_history"`

	// How long execution history is kept
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

// HandlersConfig holds settings shared by every action of a kind.
type HandlersConfig struct {
	Query QueryHandlerConfig `mapstructure:"query"`
	HTTP  HTTPHandlerConfig  `mapstructure:"http"`
}

// QueryHandlerConfig configures the query action handler.
type QueryHandlerConfig struct {
	// database/sql driver name
	Driver string `mapstructure:"driver"`

	// Connection used by query actions without their own
	DSN string `mapstructure:"dsn"`

	// Statement timeout when an action sets none
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTPHandlerConfig configures the HTTP API action handler.
type HTTPHandlerConfig struct {
	// Request timeout
	Timeout time.Duration `mapstructure:"timeout"`

	// Requests per second across every http_api action of the process; 0 disables limiting
	RateLimit float64 `mapstructure:"rate_limit"`

	// Burst allowed above RateLimit
	Burst int `mapstructure:"burst"`

	// User-Agent header sent with every request
	UserAgent string `mapstructure:"user_agent"`
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Log format (json, console)
	Format string `mapstructure:"format"`

	// Include caller info
	Caller bool `mapstructure:"caller"`

	// Include timestamp
	Timestamp bool `mapstructure:"timestamp"`
}
