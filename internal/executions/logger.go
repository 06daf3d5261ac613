package executions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/watzon/autoimport/internal/database"
	"github.com/watzon/autoimport/internal/engine"
)

const (
	cleanupInterval = time.Hour
	writeTimeout    = 5 * time.Second
)

// Recorder stores every executed action and removes entries older than
// the retention period.
type Recorder struct {
	store     *Store
	retention time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewRecorder creates a new recorder. A zero retention keeps history for 14 days.
func NewRecorder(db *database.DB, retention time.Duration) *Recorder {
	if retention == 0 {
		retention = 14 * 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Recorder{
		store:     NewStore(db),
		retention: retention,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Store returns the underlying store.
func (r *Recorder) Store() *Store {
	return r.store
}

// Start runs one cleanup right away and then begins background cleanup.
func (r *Recorder) Start() {
	r.Cleanup(r.ctx)

	r.wg.Add(1)
	go r.cleanupLoop(r.ctx, cleanupInterval)
}

// Stop gracefully shuts down background cleanup.
func (r *Recorder) Stop() {
	r.cancel()
	r.wg.Wait()
}

// ActionFinished implements engine.Observer. The entry is written even when
// the run's context has been canceled.
func (r *Recorder) ActionFinished(ctx context.Context, result engine.ActionResult) {
	completedAt := result.StartedAt.Add(result.Duration)
	execLog := &ExecutionLog{
		ID:            uuid.New().String(),
		RunID:         result.RunID,
		Configuration: result.Configuration,
		TimeID:        result.TimeID,
		Order:         result.Order,
		Kind:          string(result.Kind),
		Status:        statusFor(result.Status),
		StartedAt:     result.StartedAt,
		CompletedAt:   &completedAt,
		DurationMs:    int(result.Duration.Milliseconds()),
	}
	if result.Err != nil {
		execLog.Error = result.Err.Error()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.store.Create(writeCtx, execLog); err != nil {
		log.Error().
			Err(err).
			Str("configuration", result.Configuration).
			Int("order", result.Order).
			Msg("Failed to record action execution")
		return
	}

	log.Debug().
		Str("execution_id", execLog.ID).
		Str("run_id", execLog.RunID).
		Str("status", string(execLog.Status)).
		Msg("Execution logged")
}

// Cleanup removes entries older than the retention period.
func (r *Recorder) Cleanup(ctx context.Context) {
	removed, err := r.store.DeleteOlderThan(ctx, r.retention)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old execution logs")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Dur("retention", r.retention).Msg("Old execution logs removed")
	}
}

// cleanupLoop periodically removes old execution logs.
func (r *Recorder) cleanupLoop(ctx context.Context, interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup(ctx)
		}
	}
}

func statusFor(s engine.ActionStatus) ExecutionStatus {
	switch s {
	case engine.ActionSucceeded:
		return ExecutionStatusSuccess
	case engine.ActionCanceled:
		return ExecutionStatusCanceled
	default:
		return ExecutionStatusFailed
	}
}
