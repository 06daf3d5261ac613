// Package engine validates configurations, extracts the actions bound to a
// run scheme and executes them in order.
//
// A Service is one scheduler instance. It owns its extracted action set and
// its handler cache; instances share nothing mutable and may run concurrently.
// Within an instance, extraction and execution never overlap.
package engine

import (
	"sort"
	"sync"

	"github.com/watzon/autoimport/internal/logging"
	"github.com/watzon/autoimport/internal/models"
)

// State is the lifecycle position of a Service within a trigger cycle.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateReady
	StateExecuting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateReady:
		return "ready"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Option configures a Service.
type Option func(*Service)

// WithName sets the configuration name used for log attribution.
func WithName(name string) Option {
	return func(s *Service) {
		s.name = name
	}
}

// WithLogSettings sets the default log settings of the instance.
func WithLogSettings(settings *models.LogSettings) Option {
	return func(s *Service) {
		s.logSettings = settings
	}
}

// WithObserver adds an observer notified after every executed action.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Service is a single scheduler instance.
type Service struct {
	registry  *Registry
	observers []Observer

	mu          sync.Mutex
	name        string
	logSettings *models.LogSettings
	state       State
	lastOutcome State
	timeID      int
	actions     map[int]*models.Action
	orders      []int
	handlers    map[models.ActionKind]Handler
}

// New creates an idle Service resolving handlers from registry.
func New(registry *Registry, opts ...Option) *Service {
	s := &Service{
		registry:    registry,
		logSettings: models.DefaultLogSettings(),
		actions:     make(map[int]*models.Action),
		handlers:    make(map[models.ActionKind]Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the configuration name used for log attribution.
func (s *Service) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetName sets the configuration name used for log attribution.
func (s *Service) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// LogSettings returns the default log settings of the instance.
func (s *Service) LogSettings() *models.LogSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logSettings
}

// SetLogSettings sets the default log settings. Nil restores the built-in defaults.
func (s *Service) SetLogSettings(settings *models.LogSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings == nil {
		settings = models.DefaultLogSettings()
	}
	s.logSettings = settings
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastOutcome returns StateCompleted or StateFailed for the most recent
// run, or StateIdle when the instance has not run yet.
func (s *Service) LastOutcome() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// TimeID returns the time id of the last extraction.
func (s *Service) TimeID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeID
}

// Actions returns the extracted actions in execution order.
func (s *Service) Actions() []*models.Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Action, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, s.actions[order])
	}
	return out
}

// CachedKinds returns the kinds that already have a cached handler, sorted.
func (s *Service) CachedKinds() []models.ActionKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds := make([]models.ActionKind, 0, len(s.handlers))
	for kind := range s.handlers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Reset clears the extracted action set and returns the instance to idle.
// The handler cache is kept.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateExtracting || s.state == StateExecuting {
		return ErrBusy
	}
	s.clearLocked()
	s.state = StateIdle
	return nil
}

func (s *Service) clearLocked() {
	s.actions = make(map[int]*models.Action)
	s.orders = nil
}

// Validate checks cfg and logs every conflict at error level. It returns a
// ValidConfiguration only when no conflict was found.
func (s *Service) Validate(cfg *models.Configuration) (*ValidConfiguration, []Conflict) {
	settings := s.LogSettings()

	ok, conflicts := Validate(cfg)
	for _, c := range conflicts {
		ev := logging.Error(logging.RunStartAndStop, settings).
			Str("configuration", c.Configuration).
			Str("conflict", string(c.Kind))
		if c.Kind == ConflictDuplicateTimeID {
			ev = ev.Ints("time_ids", c.TimeIDs)
		} else {
			ev = ev.Int("time_id", c.TimeID).Ints("orders", c.Orders)
		}
		ev.Msg(c.String())
	}

	if !ok || cfg == nil {
		return nil, conflicts
	}
	return &ValidConfiguration{cfg: cfg}, nil
}
