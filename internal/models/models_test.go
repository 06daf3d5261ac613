package models

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConfiguration_AllActions(t *testing.T) {
	q := &Action{Kind: KindQuery, TimeID: 1, Order: 1}
	h := &Action{Kind: KindHTTPAPI, TimeID: 1, Order: 2}
	x := &Action{Kind: "ftp", TimeID: 2, Order: 1}

	cfg := &Configuration{
		Queries:  []*Action{q, nil},
		HTTPAPIs: []*Action{h},
		Actions:  []*Action{x},
	}

	all := cfg.AllActions()
	require.Len(t, all, 3)
	require.ElementsMatch(t, []*Action{q, h, x}, all)
}

func TestConfiguration_AllActions_Empty(t *testing.T) {
	var nilCfg *Configuration
	require.Empty(t, nilCfg.AllActions())
	require.Empty(t, (&Configuration{}).AllActions())
}

func TestConfiguration_TimeIDs(t *testing.T) {
	cfg := &Configuration{
		RunSchemes: []RunScheme{{TimeID: 3}, {TimeID: 1}, {TimeID: 3}},
	}
	require.Equal(t, []int{3, 1, 3}, cfg.TimeIDs())

	rs, ok := cfg.RunScheme(1)
	require.True(t, ok)
	require.Equal(t, 1, rs.TimeID)

	_, ok = cfg.RunScheme(9)
	require.False(t, ok)
}

func TestEffectiveLogSettings(t *testing.T) {
	def := DefaultLogSettings()
	own := &LogSettings{MinimumLevel: zerolog.DebugLevel, LogRunBody: true}

	tests := []struct {
		name   string
		action *Action
		want   *LogSettings
	}{
		{
			name:   "action without settings uses default",
			action: &Action{},
			want:   def,
		},
		{
			name:   "action settings win",
			action: &Action{LogSettings: own},
			want:   own,
		},
		{
			name:   "nil action uses default",
			action: nil,
			want:   def,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveLogSettings(tt.action, def)
			if got != tt.want {
				t.Errorf("EffectiveLogSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDefaultLogSettings(t *testing.T) {
	s := DefaultLogSettings()
	require.Equal(t, zerolog.InfoLevel, s.MinimumLevel)
	require.True(t, s.LogStartAndStop)
	require.False(t, s.LogRunStartAndStop)
	require.False(t, s.LogRunBody)
}
