package agent

import (
	"errors"
	"fmt"
)

// ErrCapability marks failures of an external capability call. The pipeline
// propagates them; no assistant message is written.
var ErrCapability = errors.New("capability call failed")

// CapabilityError is a failed capability call. errors.Is(err, ErrCapability)
// holds for it while Unwrap still exposes the cause.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapability
}

// ExecutorError represents an error from an executor run.
type ExecutorError struct {
	Executor  string // Tag of the executor that produced the error
	Operation string // Operation being performed when error occurred
	Err       error  // Underlying error
}

func (e *ExecutorError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("executor %s: %s failed: %v", e.Executor, e.Operation, e.Err)
}

func (e *ExecutorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewExecutorError creates a new ExecutorError.
func NewExecutorError(executor, operation string, err error) *ExecutorError {
	return &ExecutorError{
		Executor:  executor,
		Operation: operation,
		Err:       err,
	}
}
