package cli

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// EventType represents the type of file change event.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

// String returns a human-readable string for the event type.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileEvent represents a file change event.
type FileEvent struct {
	Type EventType
	Path string
	Name string
}

// ConfigWatcher watches a configuration directory and calls onChange once
// per burst of changes to matching files.
type ConfigWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	match    func(path string) bool
	onChange func(events []FileEvent)
	debounce time.Duration

	wg   sync.WaitGroup
	done chan struct{}

	pendingMu sync.Mutex
	pending   []FileEvent
	timer     *time.Timer
}

// NewConfigWatcher creates a watcher for dir. Only events whose path
// satisfies match are reported.
func NewConfigWatcher(dir string, debounce time.Duration, match func(path string) bool, onChange func(events []FileEvent)) (*ConfigWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &ConfigWatcher{
		watcher:  fsWatcher,
		dir:      dir,
		match:    match,
		onChange: onChange,
		debounce: debounce,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching for file changes.
func (w *ConfigWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processLoop(ctx)
	}()

	log.Debug().Str("dir", w.dir).Dur("debounce", w.debounce).Msg("Watching configurations")
}

// Stop stops the watcher. Pending changes are dropped.
func (w *ConfigWatcher) Stop() error {
	close(w.done)
	w.wg.Wait()

	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()

	return w.watcher.Close()
}

// processLoop reads fsnotify events until the watcher stops.
func (w *ConfigWatcher) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// handleFSEvent filters an fsnotify event and schedules a debounced flush.
func (w *ConfigWatcher) handleFSEvent(event fsnotify.Event) {
	var eventType EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = EventCreated
	case event.Op&fsnotify.Write != 0:
		eventType = EventModified
	case event.Op&fsnotify.Remove != 0:
		eventType = EventDeleted
	case event.Op&fsnotify.Rename != 0:
		eventType = EventRenamed
	default:
		return
	}

	if w.match != nil && !w.match(event.Name) {
		return
	}

	fileEvent := FileEvent{
		Type: eventType,
		Path: event.Name,
		Name: filepath.Base(event.Name),
	}

	log.Debug().Str("event", eventType.String()).Str("path", event.Name).Msg("Configuration file changed")

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending = append(w.pending, fileEvent)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *ConfigWatcher) flush() {
	w.pendingMu.Lock()
	events := w.pending
	w.pending = nil
	w.timer = nil
	w.pendingMu.Unlock()

	if len(events) == 0 || w.onChange == nil {
		return
	}

	select {
	case <-w.done:
		return
	default:
	}

	w.onChange(events)
}
