// Package logging configures the process logger and gates configuration log
// entries by scope and minimum level.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/watzon/autoimport/internal/config"
	"github.com/watzon/autoimport/internal/models"
)

// Scope groups log entries so configurations can switch them on and off.
type Scope int

const (
	// StartAndStop covers loading, validation and action counts.
	StartAndStop Scope = iota
	// RunStartAndStop covers the start and end of runs and actions.
	RunStartAndStop
	// RunBody covers details produced while an action runs.
	RunBody
)

// String returns the scope name used in log output.
func (s Scope) String() string {
	switch s {
	case StartAndStop:
		return "start_and_stop"
	case RunStartAndStop:
		return "run_start_and_stop"
	case RunBody:
		return "run_body"
	default:
		return "unknown"
	}
}

// Event starts a log entry for scope at level, or returns nil when settings
// suppress it. A nil *zerolog.Event discards everything chained onto it.
//
// Error and above are gated by MinimumLevel only: a disabled scope never
// hides a failure.
func Event(scope Scope, level zerolog.Level, settings *models.LogSettings) *zerolog.Event {
	if settings == nil {
		settings = models.DefaultLogSettings()
	}
	if level < settings.MinimumLevel {
		return nil
	}
	if level < zerolog.ErrorLevel && !scopeEnabled(scope, settings) {
		return nil
	}
	return log.WithLevel(level).Str("scope", scope.String())
}

// Debug is shorthand for Event at debug level.
func Debug(scope Scope, settings *models.LogSettings) *zerolog.Event {
	return Event(scope, zerolog.DebugLevel, settings)
}

// Info is shorthand for Event at info level.
func Info(scope Scope, settings *models.LogSettings) *zerolog.Event {
	return Event(scope, zerolog.InfoLevel, settings)
}

// Warn is shorthand for Event at warn level.
func Warn(scope Scope, settings *models.LogSettings) *zerolog.Event {
	return Event(scope, zerolog.WarnLevel, settings)
}

// Error is shorthand for Event at error level.
func Error(scope Scope, settings *models.LogSettings) *zerolog.Event {
	return Event(scope, zerolog.ErrorLevel, settings)
}

func scopeEnabled(scope Scope, settings *models.LogSettings) bool {
	switch scope {
	case StartAndStop:
		return settings.LogStartAndStop
	case RunStartAndStop:
		return settings.LogRunStartAndStop
	case RunBody:
		return settings.LogRunBody
	default:
		return false
	}
}

// Setup configures the global zerolog logger from cfg. verbose forces debug level.
func Setup(cfg config.LoggingConfig, verbose bool) {
	SetupWithWriter(cfg, verbose, os.Stderr)
}

// SetupWithWriter is Setup writing to w.
func SetupWithWriter(cfg config.LoggingConfig, verbose bool, w io.Writer) {
	var output io.Writer = w
	if strings.ToLower(cfg.Format) != "json" {
		// Pretty console output for development
		output = zerolog.ConsoleWriter{Out: w}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(output).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
}

// ParseLevel converts a configuration level name to a zerolog level.
// Unknown names map to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}
