package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/watzon/autoimport/internal/models"
)

var (
	// ErrNotValidated is returned when extraction is attempted without a validated configuration.
	ErrNotValidated = errors.New("configuration has not been validated")
	// ErrNotReady is returned when Execute is called without a fresh extraction.
	ErrNotReady = errors.New("no extracted actions ready to execute")
	// ErrBusy is returned when extraction and execution would overlap on one instance.
	ErrBusy = errors.New("scheduler instance is busy")
)

// ConflictError reports every conflict found in a configuration.
type ConflictError struct {
	Configuration string
	Conflicts     []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("configuration %q has %d conflict(s): %s", e.Configuration, len(e.Conflicts), strings.Join(parts, "; "))
}

// UnknownActionKindError is returned when no handler is registered for an action kind.
type UnknownActionKindError struct {
	Kind          models.ActionKind
	Configuration string
	TimeID        int
	Order         int
}

func (e *UnknownActionKindError) Error() string {
	if e.Configuration == "" {
		return fmt.Sprintf("no handler registered for action kind %q", e.Kind)
	}
	return fmt.Sprintf("configuration %q time id %d order %d: no handler registered for action kind %q",
		e.Configuration, e.TimeID, e.Order, e.Kind)
}

// DuplicateOrderError is returned when extraction meets two actions with the
// same order for one time id.
type DuplicateOrderError struct {
	Configuration string
	TimeID        int
	Order         int
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("configuration %q time id %d: duplicate action order %d", e.Configuration, e.TimeID, e.Order)
}

// HandlerExecutionError wraps a failure returned by a handler.
type HandlerExecutionError struct {
	Configuration string
	TimeID        int
	Order         int
	Kind          models.ActionKind
	Err           error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("configuration %q time id %d order %d (%s): %v", e.Configuration, e.TimeID, e.Order, e.Kind, e.Err)
}

func (e *HandlerExecutionError) Unwrap() error {
	return e.Err
}
