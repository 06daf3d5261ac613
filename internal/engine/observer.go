package engine

import (
	"context"
	"time"

	"github.com/watzon/autoimport/internal/models"
)

// ActionStatus is the outcome of one executed action.
type ActionStatus string

const (
	ActionSucceeded ActionStatus = "success"
	ActionFailed    ActionStatus = "failed"
	ActionCanceled  ActionStatus = "canceled"
)

// ActionResult describes one executed action.
type ActionResult struct {
	RunID         string
	Configuration string
	TimeID        int
	Order         int
	Kind          models.ActionKind
	Status        ActionStatus
	StartedAt     time.Time
	Duration      time.Duration
	Err           error
}

// Observer is notified after every executed action. Observers run inline
// between actions and must not block for long.
type Observer interface {
	ActionFinished(ctx context.Context, result ActionResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, result ActionResult)

// ActionFinished calls f.
func (f ObserverFunc) ActionFinished(ctx context.Context, result ActionResult) {
	f(ctx, result)
}
