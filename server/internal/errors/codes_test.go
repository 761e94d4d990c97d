package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/store"
)

func TestFromError(t *testing.T) {
	capErr := agent.NewExecutorError("send", "Execute", &agent.CapabilityError{Capability: "blockchain", Err: stderrors.New("rpc down")})

	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"not found", fmt.Errorf("get action: %w", store.ErrNotFound), ErrCodeNotFound, http.StatusNotFound},
		{"ownership", store.ErrOwnership, ErrCodeForbidden, http.StatusForbidden},
		{"ledger conflict", store.ErrLedgerConflict, ErrCodeConflict, http.StatusConflict},
		{"invalid input", store.ErrInvalidInput, ErrCodeInvalidArgument, http.StatusBadRequest},
		{"capability", capErr, ErrCodeCapabilityFailed, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, ErrCodeTimeout, http.StatusGatewayTimeout},
		{"api error passes through", RateLimitExceeded("slow"), ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{"unknown", stderrors.New("boom"), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromError(tt.err)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.Status())
			assert.True(t, IsCode(apiErr, tt.code))
		})
	}

	assert.Equal(t, "blockchain", FromError(capErr).Context["capability"])
}

func TestAPIError_BodyHidesCause(t *testing.T) {
	err := Wrap(stderrors.New("pq: password authentication failed"), ErrCodeInternal, "internal error")
	body := err.Body()

	assert.Equal(t, ErrCodeInternal, body["code"])
	assert.Equal(t, "internal error", body["message"])
	assert.NotContains(t, fmt.Sprint(body), "password")
	assert.Contains(t, err.Error(), "password")
}

func TestHTTPErrorHandler(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"domain error", store.ErrOwnership, http.StatusForbidden, `"FORBIDDEN"`},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, `"NOT_FOUND"`},
		{"echo bad request", echo.NewHTTPError(http.StatusBadRequest, "bad body"), http.StatusBadRequest, `"INVALID_ARGUMENT"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			HTTPErrorHandler(tt.err, c)

			require.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}
