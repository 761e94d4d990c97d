package errors

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler writes every handler error as a JSON APIError body.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case stderrors.As(err, &apiErr):
	case stderrors.As(err, &httpErr):
		apiErr = fromHTTPError(httpErr)
	default:
		apiErr = FromError(err)
	}

	status := apiErr.Status()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"code", apiErr.Code,
			"error", err,
		)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, apiErr.Body())
	}
	if err != nil {
		slog.Warn("failed to write error response", "error", err)
	}
}

func fromHTTPError(e *echo.HTTPError) *APIError {
	msg := http.StatusText(e.Code)
	if s, ok := e.Message.(string); ok {
		msg = s
	}
	switch e.Code {
	case http.StatusUnauthorized:
		return Unauthorized(msg)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return &APIError{Code: ErrCodeNotFound, Message: msg}
	case http.StatusTooManyRequests:
		return RateLimitExceeded(msg)
	}
	if e.Code < http.StatusInternalServerError {
		return InvalidArgument(msg)
	}
	return &APIError{Code: ErrCodeInternal, Message: msg}
}
