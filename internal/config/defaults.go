package config

import "time"

// Default configuration values.
const (
	// Configuration document defaults.
	DefaultConfigurationsPath = "configurations"
	DefaultPattern            = "*.{yaml,yml}"
	DefaultDebounce           = 500 * time.Millisecond

	// Database defaults.
	DefaultDBPath       = "autoimport.db"
	DefaultCacheSize    = -16000 // 16MB
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 1 // SQLite works best with single writer
	DefaultMaxIdleConns = 1

	// Execution defaults.
	DefaultRunTimeout       = 30 * time.Minute
	DefaultHistoryRetention = 14 * 24 * time.Hour

	// Handler defaults.
	DefaultQueryDriver  = "sqlite"
	DefaultQueryTimeout = 5 * time.Minute
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultUserAgent    = "autoimport/0.1"

	// Metrics defaults.
	DefaultMetricsAddr = "127.0.0.1:9464"
	DefaultMetricsPath = "/metrics"

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Configurations: ConfigurationsConfig{
			Path:     DefaultConfigurationsPath,
			Pattern:  DefaultPattern,
			Watch:    true,
			Debounce: DefaultDebounce,
		},
		Database: DatabaseConfig{
			Path:         DefaultDBPath,
			WALMode:      true,
			CacheSize:    DefaultCacheSize,
			BusyTimeout:  DefaultBusyTimeout,
			MaxOpenConns: DefaultMaxOpenConns,
			MaxIdleConns: DefaultMaxIdleConns,
		},
		Execution: ExecutionConfig{
			RunTimeout:       DefaultRunTimeout,
			RecordHistory:    true,
			HistoryRetention: DefaultHistoryRetention,
		},
		Handlers: HandlersConfig{
			Query: QueryHandlerConfig{
				Driver:  DefaultQueryDriver,
				Timeout: DefaultQueryTimeout,
			},
			HTTP: HTTPHandlerConfig{
				Timeout:   DefaultHTTPTimeout,
				UserAgent: DefaultUserAgent,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    DefaultMetricsAddr,
			Path:    DefaultMetricsPath,
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			Caller:    false,
			Timestamp: true,
		},
	}
}
