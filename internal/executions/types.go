package executions

import "time"

// ExecutionStatus represents the outcome of an executed action.
type ExecutionStatus string

const (
	// ExecutionStatusSuccess indicates the action completed successfully.
	ExecutionStatusSuccess ExecutionStatus = "success"
	// ExecutionStatusFailed indicates the action returned an error.
	ExecutionStatusFailed ExecutionStatus = "failed"
	// ExecutionStatusCanceled indicates the run was canceled or timed out while the action ran.
	ExecutionStatusCanceled ExecutionStatus = "canceled"
)

// ExecutionLog is one executed action.
type ExecutionLog struct {
	ID            string          // Unique execution ID
	RunID         string          // Run the action belonged to
	Configuration string          // Configuration name
	TimeID        int             // Run scheme that fired
	Order         int             // Position of the action within the run
	Kind          string          // Action kind
	Status        ExecutionStatus // Execution status
	StartedAt     time.Time       // When the action started
	CompletedAt   *time.Time      // When the action finished
	DurationMs    int             // Execution duration in milliseconds
	Error         string          // Error message if failed
}

// Filter narrows a listing. Zero fields do not filter.
type Filter struct {
	Configuration string
	TimeID        *int
	RunID         string
	Status        ExecutionStatus
	Since         time.Time
	Limit         int
	Offset        int
}
