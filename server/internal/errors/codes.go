package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/store"
)

// ErrorCode represents a specific error type returned by the API.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeForbidden indicates the resource belongs to another user.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeConflict indicates the action is no longer pending.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeCapabilityFailed indicates an external capability failed.
	ErrCodeCapabilityFailed ErrorCode = "CAPABILITY_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
	ErrCodeInvalidArgument:   http.StatusBadRequest,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeForbidden:         http.StatusForbidden,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeCapabilityFailed:  http.StatusBadGateway,
	ErrCodeTimeout:           http.StatusGatewayTimeout,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// APIError represents a structured error for API responses.
type APIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *APIError) WithContext(key string, value any) *APIError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Status returns the HTTP status of the error code.
func (e *APIError) Status() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Body is the JSON body written for the error. Causes are not exposed.
func (e *APIError) Body() map[string]any {
	body := map[string]any{"code": e.Code, "message": e.Message}
	if len(e.Context) > 0 {
		body["details"] = e.Context
	}
	return body
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(resource string) *APIError {
	return &APIError{Code: ErrCodeNotFound, Message: resource + " not found"}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *APIError {
	return &APIError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// FromError maps domain errors onto API errors. Unknown errors become
// internal errors.
func FromError(err error) *APIError {
	var apiErr *APIError
	switch {
	case stderrors.As(err, &apiErr):
		return apiErr
	case stderrors.Is(err, store.ErrNotFound):
		return Wrap(err, ErrCodeNotFound, "resource not found")
	case stderrors.Is(err, store.ErrOwnership):
		return Wrap(err, ErrCodeForbidden, "resource not owned by user")
	case stderrors.Is(err, store.ErrLedgerConflict):
		return Wrap(err, ErrCodeConflict, "action is no longer pending")
	case stderrors.Is(err, store.ErrInvalidInput):
		return Wrap(err, ErrCodeInvalidArgument, "invalid input")
	case agent.IsTimeout(err):
		return Wrap(err, ErrCodeTimeout, "operation timed out")
	case stderrors.Is(err, agent.ErrCapability):
		e := Wrap(err, ErrCodeCapabilityFailed, "external service failed")
		var capErr *agent.CapabilityError
		if stderrors.As(err, &capErr) {
			e.WithContext("capability", capErr.Capability)
		}
		return e
	default:
		return Wrap(err, ErrCodeInternal, "internal error")
	}
}
