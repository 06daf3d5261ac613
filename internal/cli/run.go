package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/autoimport/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

var (
	runOnce    string
	runNoWatch bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run configurations on their schedules",
	Long: `Load every configuration document and run its action sets according to
the configured run schemes.

The configuration directory is watched for changes and reloaded
automatically unless --no-watch is set. Use --once to run a single run
scheme right away and exit:

  autoimport run --once orders:1`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runOnce, "once", "", "run one run scheme now and exit (configuration:time_id)")
	runCmd.Flags().BoolVar(&runNoWatch, "no-watch", false, "do not reload configurations when files change")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, true)
	if err != nil {
		return err
	}

	if runOnce != "" {
		return runSingle(cmd.Context(), rt, runOnce)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt.reload()

	if rt.recorder != nil {
		rt.recorder.Start()
	}
	rt.scheduler.Start()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics.Addr, cfg.Metrics.Path)
	}

	var watcher *ConfigWatcher
	if cfg.Configurations.Watch && !runNoWatch {
		watcher, err = NewConfigWatcher(rt.source.Dir(), cfg.Configurations.Debounce, rt.source.Matches, func(events []FileEvent) {
			log.Info().Int("changes", len(events)).Msg("Configuration files changed, reloading")
			rt.reload()
		})
		if err != nil {
			log.Warn().Err(err).Str("dir", rt.source.Dir()).Msg("Failed to watch configurations, reload disabled")
		} else {
			watcher.Start(ctx)
		}
	}

	for _, job := range rt.scheduler.Jobs() {
		log.Debug().
			Str("configuration", job.Configuration).
			Int("time_id", job.TimeID).
			Str("type", string(job.Type)).
			Time("next", job.Next).
			Msg("Run scheme scheduled")
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping watcher")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	return rt.close(shutdownCtx)
}

// runSingle loads the configurations, runs one run scheme and releases
// everything again.
func runSingle(ctx context.Context, rt *runtime, target string) (err error) {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, rt.close(closeCtx))
	}()

	name, timeID, err := parseRunTarget(target)
	if err != nil {
		return err
	}

	if err := rt.scheduler.Load(rt.loadConfigurations()); err != nil {
		log.Warn().Err(err).Msg("Some configurations were not scheduled")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	if err := rt.scheduler.RunOnce(ctx, name, timeID); err != nil {
		return fmt.Errorf("running %s: %w", target, err)
	}

	log.Info().
		Str("configuration", name).
		Int("time_id", timeID).
		Dur("duration", time.Since(start)).
		Msg("Run completed")
	return nil
}

// parseRunTarget splits "configuration:time_id". The configuration name may
// itself contain colons.
func parseRunTarget(target string) (string, int, error) {
	i := strings.LastIndex(target, ":")
	if i <= 0 || i == len(target)-1 {
		return "", 0, fmt.Errorf("invalid run target %q, expected configuration:time_id", target)
	}

	timeID, err := strconv.Atoi(target[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid time id in %q: %w", target, err)
	}
	return target[:i], timeID, nil
}

// startMetricsServer serves the Prometheus handler in the background.
func startMetricsServer(addr, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("path", path).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return srv
}
