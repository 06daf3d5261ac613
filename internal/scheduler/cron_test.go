package scheduler

import (
	"testing"
	"time"

	"github.com/watzon/autoimport/internal/models"
)

func TestCronParser_Parse(t *testing.T) {
	parser := NewCronParser()

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{
			name:       "valid cron - every minute",
			expression: "* * * * *",
			wantErr:    false,
		},
		{
			name:       "valid cron - weekly on monday",
			expression: "0 0 * * 1",
			wantErr:    false,
		},
		{
			name:       "valid cron - with ranges",
			expression: "0 9-17 * * 1-5",
			wantErr:    false,
		},
		{
			name:       "valid cron - descriptor",
			expression: "@hourly",
			wantErr:    false,
		},
		{
			name:       "valid cron - timezone prefix",
			expression: "CRON_TZ=Europe/Berlin 30 3 * * *",
			wantErr:    false,
		},
		{
			name:       "invalid cron - too few fields",
			expression: "* * *",
			wantErr:    true,
		},
		{
			name:       "invalid cron - invalid value",
			expression: "60 * * * *",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.expression)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// 2026-01-23 is a Friday, 2026-01-25 a Sunday.
func TestCronParser_NextRun(t *testing.T) {
	parser := NewCronParser()
	sunday := time.Date(2026, 1, 25, 12, 0, 0, 0, time.UTC)
	friday := time.Date(2026, 1, 23, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		scheme models.RunScheme
		after  time.Time
		want   time.Time
	}{
		{
			name:   "continuous",
			scheme: models.RunScheme{Type: models.RunSchemeContinuous, Delay: 5 * time.Minute},
			after:  sunday,
			want:   sunday.Add(5 * time.Minute),
		},
		{
			name:   "daily",
			scheme: models.RunScheme{Type: models.RunSchemeDaily, Hour: "03:30"},
			after:  sunday,
			want:   time.Date(2026, 1, 26, 3, 30, 0, 0, time.UTC),
		},
		{
			name:   "daily without hour runs at midnight",
			scheme: models.RunScheme{Type: models.RunSchemeDaily},
			after:  sunday,
			want:   time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "daily in another timezone",
			scheme: models.RunScheme{Type: models.RunSchemeDaily, Hour: "03:30", Timezone: "Europe/Berlin"},
			after:  sunday,
			want:   time.Date(2026, 1, 26, 2, 30, 0, 0, time.UTC),
		},
		{
			name:   "daily skipping the weekend",
			scheme: models.RunScheme{Type: models.RunSchemeDaily, Hour: "03:30", SkipWeekend: true},
			after:  friday,
			want:   time.Date(2026, 1, 26, 3, 30, 0, 0, time.UTC),
		},
		{
			name:   "weekly",
			scheme: models.RunScheme{Type: models.RunSchemeWeekly, DayOfWeek: time.Friday, Hour: "18:00"},
			after:  sunday,
			want:   time.Date(2026, 1, 30, 18, 0, 0, 0, time.UTC),
		},
		{
			name:   "monthly",
			scheme: models.RunScheme{Type: models.RunSchemeMonthly, DayOfMonth: 1, Hour: "05:00"},
			after:  sunday,
			want:   time.Date(2026, 2, 1, 5, 0, 0, 0, time.UTC),
		},
		{
			name:   "monthly skipping weekend months",
			scheme: models.RunScheme{Type: models.RunSchemeMonthly, DayOfMonth: 1, Hour: "05:00", SkipWeekend: true},
			after:  sunday,
			want:   time.Date(2026, 4, 1, 5, 0, 0, 0, time.UTC),
		},
		{
			name:   "cron expression",
			scheme: models.RunScheme{Type: models.RunSchemeCron, Expression: "*/15 * * * *"},
			after:  sunday.Add(7 * time.Minute),
			want:   sunday.Add(15 * time.Minute),
		},
		{
			name:   "continuous skipping the weekend",
			scheme: models.RunScheme{Type: models.RunSchemeContinuous, Delay: 5 * time.Minute, SkipWeekend: true},
			after:  time.Date(2026, 1, 23, 23, 58, 0, 0, time.UTC),
			want:   time.Date(2026, 1, 26, 0, 4, 59, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := parser.NextRun(tt.scheme, tt.after)
			if err != nil {
				t.Fatalf("NextRun() error = %v", err)
			}
			if !next.Equal(tt.want) {
				t.Errorf("NextRun() = %v, want %v", next, tt.want)
			}
		})
	}
}

func TestCronParser_ScheduleErrors(t *testing.T) {
	parser := NewCronParser()

	tests := []struct {
		name   string
		scheme models.RunScheme
	}{
		{name: "missing type", scheme: models.RunScheme{}},
		{name: "unknown type", scheme: models.RunScheme{Type: "hourly"}},
		{name: "continuous without delay", scheme: models.RunScheme{Type: models.RunSchemeContinuous}},
		{name: "continuous sub-second", scheme: models.RunScheme{Type: models.RunSchemeContinuous, Delay: 500 * time.Millisecond}},
		{name: "hour out of range", scheme: models.RunScheme{Type: models.RunSchemeDaily, Hour: "25:00"}},
		{name: "hour not HH:MM", scheme: models.RunScheme{Type: models.RunSchemeDaily, Hour: "3pm"}},
		{name: "monthly without day", scheme: models.RunScheme{Type: models.RunSchemeMonthly}},
		{name: "cron without expression", scheme: models.RunScheme{Type: models.RunSchemeCron}},
		{name: "invalid cron", scheme: models.RunScheme{Type: models.RunSchemeCron, Expression: "61 * * * *"}},
		{name: "invalid timezone", scheme: models.RunScheme{Type: models.RunSchemeDaily, Timezone: "Invalid/Timezone"}},
		{name: "weekend-only weekly with skip", scheme: models.RunScheme{Type: models.RunSchemeWeekly, DayOfWeek: time.Saturday, SkipWeekend: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.Schedule(tt.scheme); err == nil {
				t.Errorf("Schedule(%+v) expected error", tt.scheme)
			}
		})
	}
}

func TestParseHour(t *testing.T) {
	h, m, err := parseHour("07:05")
	if err != nil || h != 7 || m != 5 {
		t.Errorf("parseHour(07:05) = %d, %d, %v", h, m, err)
	}
}
