package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/execfi/plugin/ai/timeout"
)

// call runs one capability call bounded by timeout.CapabilityTimeout and
// records it. Failures come back as *CapabilityError.
func call[T any](ctx context.Context, m *Metrics, capability string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.CapabilityTimeout)
	defer cancel()

	start := time.Now()
	value, err := fn(ctx)
	m.RecordCall(capability, time.Since(start), err)
	if err != nil {
		slog.Warn("capability call failed",
			"capability", capability,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		var zero T
		return zero, &CapabilityError{Capability: capability, Err: err}
	}
	return value, nil
}

// Call is call for collaborators outside the executors, such as the
// confirmation entry point.
func Call[T any](ctx context.Context, m *Metrics, capability string, fn func(context.Context) (T, error)) (T, error) {
	return call(ctx, m, capability, fn)
}
