package exec

import (
	"context"
	"errors"
	"fmt"
)

// TaskErrorCode categorizes effect task failures.
type TaskErrorCode string

const (
	// TaskFailed indicates the effect body returned a genuine error.
	TaskFailed TaskErrorCode = "TASK_FAILED"

	// TaskPanicked indicates the effect body panicked; the panic was
	// recovered at the executor boundary.
	TaskPanicked TaskErrorCode = "TASK_PANICKED"
)

// TaskError wraps an effect task failure with its identity for logs and
// diagnostics. One failing task never crashes the store or affects sibling
// effects; TaskError only ever surfaces through logging.
type TaskError struct {
	Code     TaskErrorCode
	TaskID   string
	EffectID string
	Err      error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.EffectID != "" {
		return fmt.Sprintf("%s: task %s (effect %s): %v", e.Code, e.TaskID, e.EffectID, e.Err)
	}
	return fmt.Sprintf("%s: task %s: %v", e.Code, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsCancellation reports whether err represents expected supersession or
// teardown rather than a genuine failure. Such errors are suppressed from
// error logging.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
