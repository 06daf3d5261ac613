package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watzon/autoimport/internal/engine"
)

var (
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoimport_actions_total",
			Help: "Total number of executed actions",
		},
		[]string{"configuration", "kind", "status"},
	)

	actionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoimport_action_duration_seconds",
			Help:    "Action execution time in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"configuration", "kind"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoimport_runs_total",
			Help: "Total number of triggered runs",
		},
		[]string{"configuration", "time_id", "status"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoimport_run_duration_seconds",
			Help:    "Run execution time in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900, 1800},
		},
		[]string{"configuration"},
	)

	runsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autoimport_runs_in_flight",
			Help: "Number of runs currently executing",
		},
	)

	conflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoimport_configuration_conflicts_total",
			Help: "Total number of conflicts found while validating configurations",
		},
		[]string{"configuration", "kind"},
	)

	configurationsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autoimport_configurations_loaded",
			Help: "Number of configurations currently scheduled",
		},
	)
)

// Run statuses.
const (
	RunSuccess = "success"
	RunFailed  = "failed"
	RunSkipped = "skipped"
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordAction(configuration, kind, status string, duration time.Duration) {
	actionsTotal.WithLabelValues(configuration, kind, status).Inc()
	actionDuration.WithLabelValues(configuration, kind).Observe(duration.Seconds())
}

func RecordRun(configuration, timeID, status string, duration time.Duration) {
	runsTotal.WithLabelValues(configuration, timeID, status).Inc()
	if status != RunSkipped {
		runDuration.WithLabelValues(configuration).Observe(duration.Seconds())
	}
}

func IncrementRunsInFlight() {
	runsInFlight.Inc()
}

func DecrementRunsInFlight() {
	runsInFlight.Dec()
}

func RecordConflict(configuration, kind string) {
	conflictsTotal.WithLabelValues(configuration, kind).Inc()
}

func SetConfigurationsLoaded(n int) {
	configurationsLoaded.Set(float64(n))
}

// ActionObserver records every executed action.
func ActionObserver() engine.Observer {
	return engine.ObserverFunc(func(_ context.Context, result engine.ActionResult) {
		RecordAction(result.Configuration, string(result.Kind), string(result.Status), result.Duration)
	})
}
