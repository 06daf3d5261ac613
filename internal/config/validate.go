package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateConfigurations(&cfg.Configurations)...)
	errs = append(errs, validateDatabase(&cfg.Database)...)
	errs = append(errs, validateExecution(&cfg.Execution)...)
	errs = append(errs, validateHandlers(&cfg.Handlers)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateConfigurations(cfg *ConfigurationsConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "configurations.path",
			Message: "is required",
		})
	}

	if cfg.Pattern == "" {
		errs = append(errs, ValidationError{
			Field:   "configurations.pattern",
			Message: "is required",
		})
	} else if _, err := glob.Compile(cfg.Pattern); err != nil {
		errs = append(errs, ValidationError{
			Field:   "configurations.pattern",
			Message: fmt.Sprintf("invalid glob: %v", err),
		})
	}

	if cfg.Debounce < 0 {
		errs = append(errs, ValidationError{
			Field:   "configurations.debounce",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateDatabase(cfg *DatabaseConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "database.path",
			Message: "is required",
		})
	}

	if cfg.BusyTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "database.busy_timeout",
			Message: "must be non-negative",
		})
	}

	if cfg.MaxOpenConns < 0 {
		errs = append(errs, ValidationError{
			Field:   "database.max_open_conns",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateExecution(cfg *ExecutionConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.RunTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "execution.run_timeout",
			Message: "must be non-negative",
		})
	}

	if cfg.HistoryRetention < 0 {
		errs = append(errs, ValidationError{
			Field:   "execution.history_retention",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateHandlers(cfg *HandlersConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Query.Driver == "" {
		errs = append(errs, ValidationError{
			Field:   "handlers.query.driver",
			Message: "is required",
		})
	}

	if cfg.Query.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "handlers.query.timeout",
			Message: "must be non-negative",
		})
	}

	if cfg.HTTP.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "handlers.http.timeout",
			Message: "must be non-negative",
		})
	}

	if cfg.HTTP.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "handlers.http.rate_limit",
			Message: "must be non-negative",
		})
	}

	if cfg.HTTP.RateLimit > 0 && cfg.HTTP.Burst < 1 {
		errs = append(errs, ValidationError{
			Field:   "handlers.http.burst",
			Message: "must be at least 1 when rate_limit is set",
		})
	}

	return errs
}

func validateMetrics(cfg *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if !cfg.Enabled {
		return errs
	}

	if cfg.Addr == "" {
		errs = append(errs, ValidationError{
			Field:   "metrics.addr",
			Message: "is required when metrics are enabled",
		})
	}

	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, ValidationError{
			Field:   "metrics.path",
			Message: "must start with '/'",
		})
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[cfg.Level] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of: trace, debug, info, warn, error, fatal, panic",
		})
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Format] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'console'",
		})
	}

	return errs
}
