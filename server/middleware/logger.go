package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/execfi/internal/observability"
)

// RequestLogger attaches a RequestContext to every request, logs its
// outcome and records it in metrics. metrics may be nil.
func RequestLogger(metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			reqCtx := observability.NewRequestContext(slog.Default(), "")
			if requestID != "" {
				reqCtx.RequestID = requestID
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is known.
				c.Error(err)
			}

			if id, ok := CurrentIdentity(c); ok {
				reqCtx.UserID = id.UserID
			}
			status := c.Response().Status
			route := req.Method + " " + c.Path()
			if metrics != nil {
				metrics.RecordRequest(route, status, time.Since(start))
			}
			reqCtx.Info("request",
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int64(observability.LogFieldDuration, time.Since(start).Milliseconds()),
			)
			return nil
		}
	}
}
