package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/watzon/autoimport/internal/logging"
	"github.com/watzon/autoimport/internal/models"
)

// Execute runs the extracted actions in ascending order, one at a time.
// It stops at the first failure and returns it; remaining actions are not
// started. If ctx is done before an action starts, the run is aborted and
// ctx's error is returned. There is no retry.
//
// Execute requires a preceding successful ExtractActions. The extracted set
// can be executed once: when the run ends the instance is Idle again and
// LastOutcome reports StateCompleted or StateFailed.
func (s *Service) Execute(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
	case StateExtracting, StateExecuting:
		s.mu.Unlock()
		return ErrBusy
	default:
		s.mu.Unlock()
		return ErrNotReady
	}
	s.state = StateExecuting
	name := s.name
	settings := s.logSettings
	timeID := s.timeID
	orders := append([]int(nil), s.orders...)
	actions := s.actions
	handlers := make(map[models.ActionKind]Handler, len(s.handlers))
	for kind, h := range s.handlers {
		handlers[kind] = h
	}
	s.mu.Unlock()

	runID := uuid.New().String()
	start := time.Now()

	logging.Info(logging.RunStartAndStop, settings).
		Str("configuration", name).
		Int("time_id", timeID).
		Str("run_id", runID).
		Int("actions", len(orders)).
		Msg("Run started")

	var runErr error
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("run aborted before order %d: %w", order, err)
			logging.Warn(logging.RunStartAndStop, settings).
				Str("configuration", name).
				Int("time_id", timeID).
				Int("order", order).
				Str("run_id", runID).
				Err(err).
				Msg("Run aborted")
			break
		}

		action := actions[order]
		if err := s.executeOne(ctx, runID, name, handlers[action.Kind], action); err != nil {
			runErr = err
			break
		}
	}

	// Completed and Failed are transient: the outcome is kept in lastOutcome
	// and the instance goes back to Idle, ready for the next extraction.
	s.mu.Lock()
	if runErr != nil {
		s.lastOutcome = StateFailed
	} else {
		s.lastOutcome = StateCompleted
	}
	s.clearLocked()
	s.state = StateIdle
	s.mu.Unlock()

	if runErr != nil {
		logging.Error(logging.RunStartAndStop, settings).
			Str("configuration", name).
			Int("time_id", timeID).
			Str("run_id", runID).
			Dur("dur", time.Since(start)).
			Err(runErr).
			Msg("Run failed")
		return runErr
	}

	logging.Info(logging.RunStartAndStop, settings).
		Str("configuration", name).
		Int("time_id", timeID).
		Str("run_id", runID).
		Dur("dur", time.Since(start)).
		Msg("Run completed")
	return nil
}

func (s *Service) executeOne(ctx context.Context, runID, name string, handler Handler, action *models.Action) error {
	settings := action.LogSettings
	result := ActionResult{
		RunID:         runID,
		Configuration: name,
		TimeID:        action.TimeID,
		Order:         action.Order,
		Kind:          action.Kind,
		StartedAt:     time.Now(),
	}

	logging.Info(logging.RunStartAndStop, settings).
		Str("configuration", name).
		Int("time_id", action.TimeID).
		Int("order", action.Order).
		Str("kind", string(action.Kind)).
		Str("run_id", runID).
		Msg("Action started")

	var err error
	if handler == nil {
		err = &UnknownActionKindError{Kind: action.Kind, Configuration: name, TimeID: action.TimeID, Order: action.Order}
	} else {
		err = callHandler(ctx, handler, action)
	}
	result.Duration = time.Since(result.StartedAt)

	if err != nil {
		var unknown *UnknownActionKindError
		if !errors.As(err, &unknown) {
			err = &HandlerExecutionError{
				Configuration: name,
				TimeID:        action.TimeID,
				Order:         action.Order,
				Kind:          action.Kind,
				Err:           err,
			}
		}
		result.Err = err
		result.Status = ActionFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Status = ActionCanceled
		}

		logging.Error(logging.RunStartAndStop, settings).
			Str("configuration", name).
			Int("time_id", action.TimeID).
			Int("order", action.Order).
			Str("kind", string(action.Kind)).
			Str("run_id", runID).
			Dur("dur", result.Duration).
			Err(err).
			Msg("Action failed")
	} else {
		result.Status = ActionSucceeded
		logging.Info(logging.RunStartAndStop, settings).
			Str("configuration", name).
			Int("time_id", action.TimeID).
			Int("order", action.Order).
			Str("kind", string(action.Kind)).
			Str("run_id", runID).
			Dur("dur", result.Duration).
			Msg("Action completed")
	}

	for _, o := range s.observers {
		o.ActionFinished(ctx, result)
	}

	return err
}

// callHandler converts a handler panic into an error so one bad handler
// cannot take down the trigger loop.
func callHandler(ctx context.Context, handler Handler, action *models.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Error().
				Str("kind", string(action.Kind)).
				Int("order", action.Order).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Action handler panicked")
		}
	}()
	return handler.Execute(ctx, action)
}
