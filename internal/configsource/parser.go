package configsource

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/watzon/autoimport/internal/models"
)

// ParseFile reads and parses one configuration document.
func ParseFile(path string) (*models.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML configuration document. Entries under queries and
// http_apis get their kind implicitly; entries under actions must name one.
func Parse(data []byte) (*models.Configuration, error) {
	var raw rawConfiguration
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing configuration YAML: %w", err)
	}

	cfg := &models.Configuration{
		ServiceName: raw.ServiceName,
	}

	if raw.LogSettings != nil {
		settings, err := parseLogSettings(raw.LogSettings)
		if err != nil {
			return nil, fmt.Errorf("log_settings: %w", err)
		}
		cfg.LogSettings = settings
	}

	for i, rs := range raw.RunSchemes {
		if rs == nil {
			return nil, fmt.Errorf("run_schemes[%d]: entry is empty", i)
		}
		scheme, err := parseRunScheme(rs)
		if err != nil {
			return nil, fmt.Errorf("run_schemes[%d]: %w", i, err)
		}
		cfg.RunSchemes = append(cfg.RunSchemes, scheme)
	}

	for i, q := range raw.Queries {
		if q == nil {
			return nil, fmt.Errorf("queries[%d]: entry is empty", i)
		}
		action, err := q.action(models.KindQuery)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		timeout, err := parseDuration(q.Timeout)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: timeout: %w", i, err)
		}
		if q.Query == "" {
			return nil, fmt.Errorf("queries[%d]: query is required", i)
		}
		action.Query = &models.QueryAction{
			Connection: q.Connection,
			Query:      q.Query,
			Timeout:    timeout,
		}
		cfg.Queries = append(cfg.Queries, action)
	}

	for i, h := range raw.HTTPAPIs {
		if h == nil {
			return nil, fmt.Errorf("http_apis[%d]: entry is empty", i)
		}
		action, err := h.action(models.KindHTTPAPI)
		if err != nil {
			return nil, fmt.Errorf("http_apis[%d]: %w", i, err)
		}
		if h.URL == "" {
			return nil, fmt.Errorf("http_apis[%d]: url is required", i)
		}
		action.HTTPAPI = &models.HTTPAPIAction{
			Method:         strings.ToUpper(h.Method),
			URL:            h.URL,
			Headers:        h.Headers,
			Body:           h.Body,
			ExpectedStatus: h.ExpectedStatus,
		}
		cfg.HTTPAPIs = append(cfg.HTTPAPIs, action)
	}

	for i, a := range raw.Actions {
		if a == nil {
			return nil, fmt.Errorf("actions[%d]: entry is empty", i)
		}
		if a.Kind == "" {
			return nil, fmt.Errorf("actions[%d]: kind is required", i)
		}
		action, err := a.action(models.ActionKind(a.Kind))
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		action.Options = a.Options
		cfg.Actions = append(cfg.Actions, action)
	}

	return cfg, nil
}

type rawConfiguration struct {
	ServiceName string          `yaml:"service_name"`
	LogSettings *rawLogSettings `yaml:"log_settings"`
	RunSchemes  []*rawRunScheme `yaml:"run_schemes"`
	Queries     []*rawQuery     `yaml:"queries"`
	HTTPAPIs    []*rawHTTPAPI   `yaml:"http_apis"`
	Actions     []*rawGeneric   `yaml:"actions"`
}

type rawLogSettings struct {
	MinimumLevel       string `yaml:"minimum_level"`
	LogStartAndStop    bool   `yaml:"log_start_and_stop"`
	LogRunStartAndStop bool   `yaml:"log_run_start_and_stop"`
	LogRunBody         bool   `yaml:"log_run_body"`
}

type rawRunScheme struct {
	TimeID         *int   `yaml:"time_id"`
	Type           string `yaml:"type"`
	Delay          string `yaml:"delay"`
	Hour           string `yaml:"hour"`
	DayOfWeek      string `yaml:"day_of_week"`
	DayOfMonth     int    `yaml:"day_of_month"`
	Expression     string `yaml:"expression"`
	Timezone       string `yaml:"timezone"`
	SkipWeekend    bool   `yaml:"skip_weekend"`
	RunImmediately bool   `yaml:"run_immediately"`
}

// rawAction holds the fields shared by every action entry.
type rawAction struct {
	TimeID      *int            `yaml:"time_id"`
	Order       *int            `yaml:"order"`
	LogSettings *rawLogSettings `yaml:"log_settings"`
}

type rawQuery struct {
	rawAction  `yaml:",inline"`
	Connection string `yaml:"connection"`
	Query      string `yaml:"query"`
	Timeout    string `yaml:"timeout"`
}

type rawHTTPAPI struct {
	rawAction      `yaml:",inline"`
	Method         string            `yaml:"method"`
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers"`
	Body           string            `yaml:"body"`
	ExpectedStatus int               `yaml:"expected_status"`
}

type rawGeneric struct {
	rawAction `yaml:",inline"`
	Kind      string         `yaml:"kind"`
	Options   map[string]any `yaml:"options"`
}

func (a *rawAction) action(kind models.ActionKind) (*models.Action, error) {
	if a.TimeID == nil {
		return nil, fmt.Errorf("time_id is required")
	}
	if a.Order == nil {
		return nil, fmt.Errorf("order is required")
	}

	action := &models.Action{
		Kind:   kind,
		TimeID: *a.TimeID,
		Order:  *a.Order,
	}
	if a.LogSettings != nil {
		settings, err := parseLogSettings(a.LogSettings)
		if err != nil {
			return nil, fmt.Errorf("log_settings: %w", err)
		}
		action.LogSettings = settings
	}
	return action, nil
}

func parseLogSettings(raw *rawLogSettings) (*models.LogSettings, error) {
	level := zerolog.InfoLevel
	if raw.MinimumLevel != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw.MinimumLevel))
		if err != nil {
			return nil, fmt.Errorf("invalid minimum_level %q", raw.MinimumLevel)
		}
		level = parsed
	}
	return &models.LogSettings{
		MinimumLevel:       level,
		LogStartAndStop:    raw.LogStartAndStop,
		LogRunStartAndStop: raw.LogRunStartAndStop,
		LogRunBody:         raw.LogRunBody,
	}, nil
}

func parseRunScheme(raw *rawRunScheme) (models.RunScheme, error) {
	if raw.TimeID == nil {
		return models.RunScheme{}, fmt.Errorf("time_id is required")
	}

	scheme := models.RunScheme{
		TimeID:         *raw.TimeID,
		Type:           models.RunSchemeType(strings.ToLower(raw.Type)),
		Hour:           raw.Hour,
		DayOfMonth:     raw.DayOfMonth,
		Expression:     raw.Expression,
		Timezone:       raw.Timezone,
		SkipWeekend:    raw.SkipWeekend,
		RunImmediately: raw.RunImmediately,
	}

	delay, err := parseDuration(raw.Delay)
	if err != nil {
		return scheme, fmt.Errorf("delay: %w", err)
	}
	scheme.Delay = delay

	if raw.DayOfWeek != "" {
		day, err := parseWeekday(raw.DayOfWeek)
		if err != nil {
			return scheme, err
		}
		scheme.DayOfWeek = day
	}

	return scheme, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	// Bare numbers are seconds.
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid day_of_week %q", s)
}
