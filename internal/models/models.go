// Package models describes configurations, their run schemes and their actions.
package models

import "time"

// ActionKind identifies which handler executes an action.
type ActionKind string

const (
	// KindQuery runs a statement against a database connection.
	KindQuery ActionKind = "query"
	// KindHTTPAPI performs an HTTP call.
	KindHTTPAPI ActionKind = "http_api"
)

// RunSchemeType represents when a run scheme fires.
type RunSchemeType string

const (
	// RunSchemeContinuous fires every Delay.
	RunSchemeContinuous RunSchemeType = "continuous"
	// RunSchemeDaily fires once a day at Hour.
	RunSchemeDaily RunSchemeType = "daily"
	// RunSchemeWeekly fires once a week on DayOfWeek at Hour.
	RunSchemeWeekly RunSchemeType = "weekly"
	// RunSchemeMonthly fires once a month on DayOfMonth at Hour.
	RunSchemeMonthly RunSchemeType = "monthly"
	// RunSchemeCron fires according to a cron expression.
	RunSchemeCron RunSchemeType = "cron"
)

// Configuration is a named bundle of run schemes and actions.
type Configuration struct {
	ServiceName string       // Name used for log attribution
	LogSettings *LogSettings // Default log settings for actions that have none
	RunSchemes  []RunScheme  // When actions fire
	Queries     []*Action    // Query actions
	HTTPAPIs    []*Action    // HTTP API actions
	Actions     []*Action    // Actions of any other registered kind
}

// RunScheme declares when the actions sharing its TimeID fire.
type RunScheme struct {
	TimeID         int           // Trigger identifier, unique within a configuration
	Type           RunSchemeType // Trigger type
	Delay          time.Duration // Interval for continuous schemes
	Hour           string        // Time of day (HH:MM) for daily, weekly and monthly schemes
	DayOfWeek      time.Weekday  // Weekday for weekly schemes
	DayOfMonth     int           // Day for monthly schemes
	Expression     string        // Cron expression for cron schemes
	Timezone       string        // IANA timezone (default "UTC")
	SkipWeekend    bool          // Do not fire on Saturday and Sunday
	RunImmediately bool          // Fire once as soon as the scheme is loaded
}

// Action is one unit of work. Kind selects the handler; the payload field
// matching the kind carries its settings.
type Action struct {
	Kind        ActionKind
	TimeID      int
	Order       int
	LogSettings *LogSettings

	Query   *QueryAction
	HTTPAPI *HTTPAPIAction

	// Options carries settings for kinds without a typed payload.
	Options map[string]any
}

// QueryAction holds the settings of a query action.
type QueryAction struct {
	Connection string        // DSN override; empty uses the handler default
	Query      string        // Statement to execute
	Timeout    time.Duration // Per-statement timeout; zero uses the handler default
}

// HTTPAPIAction holds the settings of an HTTP API action.
type HTTPAPIAction struct {
	Method         string
	URL            string
	Headers        map[string]string
	Body           string
	ExpectedStatus int // Zero accepts any 2xx status
}

// AllActions returns every action of every action set. Order is not significant.
func (c *Configuration) AllActions() []*Action {
	if c == nil {
		return nil
	}

	sets := [][]*Action{c.Queries, c.HTTPAPIs, c.Actions}

	var all []*Action
	for _, set := range sets {
		for _, action := range set {
			if action != nil {
				all = append(all, action)
			}
		}
	}
	return all
}

// TimeIDs returns the time ids of all run schemes in declaration order,
// duplicates included.
func (c *Configuration) TimeIDs() []int {
	if c == nil {
		return nil
	}
	ids := make([]int, 0, len(c.RunSchemes))
	for _, rs := range c.RunSchemes {
		ids = append(ids, rs.TimeID)
	}
	return ids
}

// RunScheme returns the run scheme with the given time id.
func (c *Configuration) RunScheme(timeID int) (RunScheme, bool) {
	if c == nil {
		return RunScheme{}, false
	}
	for _, rs := range c.RunSchemes {
		if rs.TimeID == timeID {
			return rs, true
		}
	}
	return RunScheme{}, false
}
