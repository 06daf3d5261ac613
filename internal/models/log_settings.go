package models

import "github.com/rs/zerolog"

// LogSettings controls which log entries an action or configuration emits.
type LogSettings struct {
	MinimumLevel       zerolog.Level // Entries below this level are dropped
	LogStartAndStop    bool          // Service start, stop and action counts
	LogRunStartAndStop bool          // Start and end of every run and action
	LogRunBody         bool          // Details produced while an action runs
}

// DefaultLogSettings returns the settings used when neither an action nor
// its configuration specifies any.
func DefaultLogSettings() *LogSettings {
	return &LogSettings{
		MinimumLevel:       zerolog.InfoLevel,
		LogStartAndStop:    true,
		LogRunStartAndStop: false,
		LogRunBody:         false,
	}
}

// EffectiveLogSettings returns the action's own settings when present and def otherwise.
func EffectiveLogSettings(action *Action, def *LogSettings) *LogSettings {
	if action != nil && action.LogSettings != nil {
		return action.LogSettings
	}
	return def
}
