package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/watzon/autoimport/internal/models"
)

// minDelay is the shortest interval a continuous run scheme may use.
const minDelay = time.Second

// CronParser wraps robfig/cron for parsing cron expressions.
type CronParser struct {
	parser cron.Parser
}

// NewCronParser creates a new cron parser with standard options.
func NewCronParser() *CronParser {
	return &CronParser{
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
}

// Parse parses a cron expression and returns a schedule.
func (p *CronParser) Parse(expression string) (cron.Schedule, error) {
	schedule, err := p.parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parsing cron expression: %w", err)
	}
	return schedule, nil
}

// Schedule converts a run scheme into a cron schedule.
func (p *CronParser) Schedule(rs models.RunScheme) (cron.Schedule, error) {
	loc, err := loadLocation(rs.Timezone)
	if err != nil {
		return nil, err
	}

	var schedule cron.Schedule
	switch rs.Type {
	case models.RunSchemeContinuous:
		if rs.Delay < minDelay {
			return nil, fmt.Errorf("continuous run scheme needs a delay of at least %s", minDelay)
		}
		schedule = cron.Every(rs.Delay)

	case models.RunSchemeDaily, models.RunSchemeWeekly, models.RunSchemeMonthly:
		expr, err := calendarExpression(rs)
		if err != nil {
			return nil, err
		}
		schedule, err = p.Parse(withTimezone(expr, loc))
		if err != nil {
			return nil, err
		}

	case models.RunSchemeCron:
		if strings.TrimSpace(rs.Expression) == "" {
			return nil, fmt.Errorf("cron run scheme needs an expression")
		}
		schedule, err = p.Parse(withTimezone(rs.Expression, loc))
		if err != nil {
			return nil, err
		}

	case "":
		return nil, fmt.Errorf("run scheme type is required")

	default:
		return nil, fmt.Errorf("unknown run scheme type: %s", rs.Type)
	}

	if rs.SkipWeekend {
		if rs.Type == models.RunSchemeWeekly && isWeekend(rs.DayOfWeek) {
			return nil, fmt.Errorf("weekly run scheme on %s never fires with skip_weekend", rs.DayOfWeek)
		}
		schedule = weekdaysOnly{inner: schedule, loc: loc}
	}

	return schedule, nil
}

// calendarExpression builds the cron expression for daily, weekly and monthly schemes.
func calendarExpression(rs models.RunScheme) (string, error) {
	hour, minute, err := parseHour(rs.Hour)
	if err != nil {
		return "", err
	}

	switch rs.Type {
	case models.RunSchemeDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case models.RunSchemeWeekly:
		return fmt.Sprintf("%d %d * * %d", minute, hour, rs.DayOfWeek), nil
	default:
		if rs.DayOfMonth < 1 || rs.DayOfMonth > 31 {
			return "", fmt.Errorf("day_of_month must be between 1 and 31, got %d", rs.DayOfMonth)
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, rs.DayOfMonth), nil
	}
}

// parseHour parses "HH:MM". An empty string means midnight.
func parseHour(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid hour %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour %q, expected HH:MM", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid hour %q, expected HH:MM", s)
	}
	return hour, minute, nil
}

func loadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	return loc, nil
}

func withTimezone(expr string, loc *time.Location) string {
	if strings.HasPrefix(expr, "CRON_TZ=") || strings.HasPrefix(expr, "TZ=") {
		return expr
	}
	return "CRON_TZ=" + loc.String() + " " + expr
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// weekdaysOnly moves activations that fall on a weekend to the first
// activation on the following Monday or later.
type weekdaysOnly struct {
	inner cron.Schedule
	loc   *time.Location
}

// maxWeekendSkips bounds the search for schedules that only fire on weekends.
const maxWeekendSkips = 16

func (s weekdaysOnly) Next(t time.Time) time.Time {
	next := s.inner.Next(t)
	for i := 0; i < maxWeekendSkips; i++ {
		if next.IsZero() {
			return next
		}
		local := next.In(s.loc)
		if !isWeekend(local.Weekday()) {
			return next
		}
		days := 1
		if local.Weekday() == time.Saturday {
			days = 2
		}
		monday := time.Date(local.Year(), local.Month(), local.Day()+days, 0, 0, 0, 0, s.loc)
		next = s.inner.Next(monday.Add(-time.Second))
	}
	return time.Time{}
}

// NextRun returns the first activation of rs after the given time.
func (p *CronParser) NextRun(rs models.RunScheme, after time.Time) (time.Time, error) {
	schedule, err := p.Schedule(rs)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(after), nil
}
