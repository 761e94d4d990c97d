package agent

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/hrygo/execfi/plugin/apiclient"
	"github.com/hrygo/execfi/store"
)

// ErrorClass represents the category of an executor failure.
type ErrorClass int

const (
	// ErrorClassTransient is a failure that may succeed on retry: network
	// errors, timeouts, rate limits and upstream 5xx.
	ErrorClassTransient ErrorClass = iota

	// ErrorClassPermanent is a non-retryable failure.
	ErrorClassPermanent

	// ErrorClassConflict is a ledger compare-and-set failure.
	ErrorClassConflict
)

func (e ErrorClass) String() string {
	switch e {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassPermanent:
		return "permanent"
	case ErrorClassConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// ClassifyError sorts err into an ErrorClass. Unknown errors are permanent.
func ClassifyError(err error) ErrorClass {
	if errors.Is(err, store.ErrLedgerConflict) {
		return ErrorClassConflict
	}
	if IsTimeout(err) {
		return ErrorClassTransient
	}
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == 429 || statusErr.StatusCode >= 500 {
			return ErrorClassTransient
		}
		return ErrorClassPermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassTransient
	}
	return ErrorClassPermanent
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout")
}
