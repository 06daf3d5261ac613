package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/watzon/autoimport/internal/config"
	"github.com/watzon/autoimport/internal/configsource"
	"github.com/watzon/autoimport/internal/database"
	"github.com/watzon/autoimport/internal/engine"
	"github.com/watzon/autoimport/internal/executions"
	"github.com/watzon/autoimport/internal/handlers"
	"github.com/watzon/autoimport/internal/metrics"
	"github.com/watzon/autoimport/internal/models"
	"github.com/watzon/autoimport/internal/scheduler"
)

// runtime wires the pieces a command needs to load and run configurations.
type runtime struct {
	cfg       *config.Config
	source    *configsource.DirSource
	pool      *handlers.Pool
	registry  *engine.Registry
	scheduler *scheduler.Scheduler

	db       *database.DB
	recorder *executions.Recorder
}

// newRuntime builds a runtime from cfg. History is recorded only when
// requested and enabled in cfg.
func newRuntime(cfg *config.Config, withHistory bool) (*runtime, error) {
	source, err := configsource.NewDirSource(cfg.Configurations.Path, cfg.Configurations.Pattern)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		source:   source,
		pool:     handlers.NewPool(cfg.Handlers.Query.Driver),
		registry: engine.NewRegistry(),
	}
	handlers.RegisterBuiltins(rt.registry, rt.pool, cfg.Handlers)

	opts := []scheduler.Option{
		scheduler.WithObserver(metrics.ActionObserver()),
		scheduler.WithRunTimeout(cfg.Execution.RunTimeout),
	}

	if withHistory && cfg.Execution.RecordHistory {
		db, err := database.Open(&cfg.Database)
		if err != nil {
			_ = rt.pool.Close()
			return nil, fmt.Errorf("opening history database: %w", err)
		}
		rt.db = db
		rt.recorder = executions.NewRecorder(db, cfg.Execution.HistoryRetention)
		opts = append(opts, scheduler.WithObserver(rt.recorder))
	}

	rt.scheduler = scheduler.NewScheduler(rt.registry, opts...)
	return rt, nil
}

// loadConfigurations reads every configuration document. Documents that
// fail to parse are logged and left out.
func (rt *runtime) loadConfigurations() []*models.Configuration {
	docs, err := rt.source.Load()
	if err != nil {
		log.Error().Err(err).Str("dir", rt.source.Dir()).Msg("Some configuration documents could not be loaded")
	}

	cfgs := make([]*models.Configuration, 0, len(docs))
	for _, doc := range docs {
		log.Debug().Str("path", doc.Path).Str("configuration", doc.Config.ServiceName).Msg("Loaded configuration document")
		cfgs = append(cfgs, doc.Config)
	}
	return cfgs
}

// reload loads every configuration document and replaces the scheduled
// configurations with them.
func (rt *runtime) reload() {
	cfgs := rt.loadConfigurations()
	if err := rt.scheduler.Load(cfgs); err != nil {
		log.Warn().Err(err).Msg("Some configurations were not scheduled")
	}
	log.Info().Int("configurations", len(cfgs)).Int("run_schemes", len(rt.scheduler.Jobs())).Msg("Configurations loaded")
}

// close stops the scheduler and releases every resource.
func (rt *runtime) close(ctx context.Context) error {
	rt.scheduler.Stop(ctx)

	var errs []error
	if rt.recorder != nil {
		rt.recorder.Stop()
	}
	if err := rt.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing query connections: %w", err))
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing history database: %w", err))
		}
	}
	return errors.Join(errs...)
}
