// Package scheduler triggers configurations according to their run schemes.
//
// Every run scheme of a configuration gets its own engine.Service, so run
// schemes of one configuration fire independently while a single run
// scheme never overlaps with itself.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/watzon/autoimport/internal/engine"
	"github.com/watzon/autoimport/internal/logging"
	"github.com/watzon/autoimport/internal/metrics"
	"github.com/watzon/autoimport/internal/models"
)

// ErrJobNotFound is returned by RunOnce for an unknown configuration or time id.
var ErrJobNotFound = errors.New("no scheduled run scheme with that name and time id")

// ErrSkipped is returned when a run is triggered while the previous run of
// the same run scheme is still in progress.
var ErrSkipped = errors.New("previous run still in progress")

// Scheduler manages scheduled configuration runs.
type Scheduler struct {
	registry   *engine.Registry
	parser     *CronParser
	observers  []engine.Observer
	runTimeout time.Duration

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	jobs    map[string]*Job
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver adds an observer to every engine instance the scheduler creates.
func WithObserver(o engine.Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

// WithRunTimeout bounds every run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.runTimeout = d
	}
}

// NewScheduler creates a new scheduler. It does not fire anything until Start.
func NewScheduler(registry *engine.Registry, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		registry: registry,
		parser:   NewCronParser(),
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(s)
	}

	logger := cronLogger{}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	return s
}

// Job is one run scheme of one configuration.
type Job struct {
	Configuration string
	TimeID        int
	Scheme        models.RunScheme

	scheduler *Scheduler
	schedule  cron.Schedule
	valid     *engine.ValidConfiguration
	service   *engine.Service
	entryID   cron.EntryID
	running   sync.Mutex
}

// JobInfo describes a scheduled job.
type JobInfo struct {
	Configuration string
	TimeID        int
	Type          models.RunSchemeType
	Next          time.Time
}

func jobKey(name string, timeID int) string {
	return name + ":" + strconv.Itoa(timeID)
}

// Check validates cfg and every one of its run schemes without scheduling
// anything. Conflicts are returned as an *engine.ConflictError.
func (s *Scheduler) Check(cfg *models.Configuration) error {
	_, err := s.prepare(cfg)
	return err
}

// prepare validates cfg and builds one job per run scheme.
func (s *Scheduler) prepare(cfg *models.Configuration) ([]*Job, error) {
	settings := cfg.LogSettings
	if settings == nil {
		settings = models.DefaultLogSettings()
	}

	opts := []engine.Option{engine.WithName(cfg.ServiceName), engine.WithLogSettings(settings)}
	for _, o := range s.observers {
		opts = append(opts, engine.WithObserver(o))
	}

	probe := engine.New(s.registry, opts...)
	valid, conflicts := probe.Validate(cfg)
	if len(conflicts) > 0 {
		for _, c := range conflicts {
			metrics.RecordConflict(cfg.ServiceName, string(c.Kind))
		}
		return nil, &engine.ConflictError{Configuration: cfg.ServiceName, Conflicts: conflicts}
	}

	var (
		jobs []*Job
		errs []error
	)
	for i, rs := range cfg.RunSchemes {
		schedule, err := s.parser.Schedule(rs)
		if err != nil {
			errs = append(errs, fmt.Errorf("configuration %q time id %d: %w", cfg.ServiceName, rs.TimeID, err))
			continue
		}

		service := probe
		if i > 0 {
			service = engine.New(s.registry, opts...)
		}
		jobs = append(jobs, &Job{
			Configuration: cfg.ServiceName,
			TimeID:        rs.TimeID,
			Scheme:        rs,
			scheduler:     s,
			schedule:      schedule,
			valid:         valid,
			service:       service,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return jobs, nil
}

// Load replaces the scheduled configurations with cfgs. Configurations
// that fail validation are not scheduled and are reported in the returned
// error; the others are scheduled regardless. Runs already in progress
// finish on their old engine instance.
func (s *Scheduler) Load(cfgs []*models.Configuration) error {
	var (
		jobs   []*Job
		errs   []error
		loaded int
	)
	for _, cfg := range cfgs {
		prepared, err := s.prepare(cfg)
		if err != nil {
			log.Error().Err(err).Str("configuration", cfg.ServiceName).Msg("Configuration not scheduled")
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, prepared...)
		loaded++

		settings := cfg.LogSettings
		if settings == nil {
			settings = models.DefaultLogSettings()
		}
		logging.Info(logging.StartAndStop, settings).
			Str("configuration", cfg.ServiceName).
			Int("run_schemes", len(prepared)).
			Int("actions", len(cfg.AllActions())).
			Msg("Configuration scheduled")
	}

	s.mu.Lock()
	for _, job := range s.jobs {
		s.cron.Remove(job.entryID)
	}
	s.jobs = make(map[string]*Job, len(jobs))
	for _, job := range jobs {
		job.entryID = s.cron.Schedule(job.schedule, job)
		s.jobs[jobKey(job.Configuration, job.TimeID)] = job
	}
	started := s.started
	s.mu.Unlock()

	metrics.SetConfigurationsLoaded(loaded)

	if started {
		s.runImmediate(jobs)
	}

	return errors.Join(errs...)
}

// Start begins firing scheduled runs. Run schemes marked to run
// immediately fire once right away.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	s.cron.Start()
	s.runImmediate(jobs)

	log.Info().Int("run_schemes", len(jobs)).Msg("Scheduler started")
}

// Stop stops firing runs, cancels runs in progress and waits for them to
// return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	cronDone := s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		<-cronDone
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("Scheduler stop timed out with runs in progress")
	}
}

// RunOnce runs one run scheme of a loaded configuration right away and
// returns its result.
func (s *Scheduler) RunOnce(ctx context.Context, name string, timeID int) error {
	s.mu.Lock()
	job, ok := s.jobs[jobKey(name, timeID)]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobKey(name, timeID))
	}
	return job.execute(ctx)
}

// Jobs lists the scheduled jobs ordered by configuration and time id.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		info := JobInfo{
			Configuration: job.Configuration,
			TimeID:        job.TimeID,
			Type:          job.Scheme.Type,
		}
		if s.started {
			info.Next = s.cron.Entry(job.entryID).Next
		} else {
			info.Next = job.schedule.Next(time.Now())
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Configuration != infos[j].Configuration {
			return infos[i].Configuration < infos[j].Configuration
		}
		return infos[i].TimeID < infos[j].TimeID
	})
	return infos
}

func (s *Scheduler) runImmediate(jobs []*Job) {
	for _, job := range jobs {
		if !job.Scheme.RunImmediately {
			continue
		}
		s.wg.Add(1)
		go func(j *Job) {
			defer s.wg.Done()
			j.Run()
		}(job)
	}
}

// Run implements cron.Job.
func (j *Job) Run() {
	s := j.scheduler
	s.wg.Add(1)
	defer s.wg.Done()

	if err := j.execute(s.ctx); err != nil && !errors.Is(err, ErrSkipped) {
		log.Debug().
			Err(err).
			Str("configuration", j.Configuration).
			Int("time_id", j.TimeID).
			Msg("Scheduled run did not complete")
	}
}

// execute extracts and executes the job's actions once. A job whose
// previous run is still in progress is skipped.
func (j *Job) execute(ctx context.Context) error {
	timeID := strconv.Itoa(j.TimeID)

	if !j.running.TryLock() {
		log.Warn().
			Str("configuration", j.Configuration).
			Int("time_id", j.TimeID).
			Msg("Skipping run, previous run still in progress")
		metrics.RecordRun(j.Configuration, timeID, metrics.RunSkipped, 0)
		return ErrSkipped
	}
	defer j.running.Unlock()

	if timeout := j.scheduler.runTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := j.service.ExtractActions(j.TimeID, j.valid); err != nil {
		metrics.RecordRun(j.Configuration, timeID, metrics.RunFailed, time.Since(start))
		return err
	}

	metrics.IncrementRunsInFlight()
	err := j.service.Execute(ctx)
	metrics.DecrementRunsInFlight()

	status := metrics.RunSuccess
	if err != nil {
		status = metrics.RunFailed
	}
	metrics.RecordRun(j.Configuration, timeID, status, time.Since(start))
	return err
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
