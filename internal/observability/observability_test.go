package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod")

	reqCtx := NewRequestContextWithID(logger, "req-1", "wallet-a")
	reqCtx.Executor = "send"
	reqCtx.Info("message handled", slog.Int(LogFieldMessageLen, 12))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry[LogFieldRequestID])
	assert.Equal(t, "wallet-a", entry[LogFieldUserID])
	assert.Equal(t, "send", entry[LogFieldExecutor])
	assert.EqualValues(t, 12, entry[LogFieldMessageLen])
}

func TestRequestFrom(t *testing.T) {
	reqCtx := NewRequestContext(nil, "wallet-a")
	ctx := WithRequestContext(context.Background(), reqCtx)

	assert.Same(t, reqCtx, RequestFrom(ctx, "other"))

	fresh := RequestFrom(context.Background(), "wallet-b")
	assert.Equal(t, "wallet-b", fresh.UserID)
	assert.NotEmpty(t, fresh.RequestID)
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("POST /api/v1/conversations/:id/messages", 200, 30*time.Millisecond)
	m.RecordRequest("POST /api/v1/conversations/:id/messages", 502, 10*time.Millisecond)
	m.RecordRequest("GET /healthz", 200, time.Millisecond)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "GET /healthz", snap[0].Route)
	assert.Equal(t, RouteSnapshot{Route: "POST /api/v1/conversations/:id/messages", Count: 2, Errors: 1, AverageDurationMs: 20}, snap[1])
}
