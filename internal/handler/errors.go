package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/building-management/internal/repository"
	"github.com/iliyamo/building-management/internal/service"
)

// NewErrorHandler returns the echo.HTTPErrorHandler that turns errors
// returned by handlers into JSON responses of the form
// {"error": message, "code": kind}.  Unexpected errors are logged and
// reported as 500 without detail.
func NewErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, code, msg := classify(err)
		switch {
		case status == http.StatusServiceUnavailable:
			c.Response().Header().Set("Retry-After", "1")
		case status >= http.StatusInternalServerError:
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, echo.Map{"error": msg, "code": code})
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}

// classify maps an error to status, machine-readable code and message.
func classify(err error) (int, string, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, codeForStatus(he.Code), msg
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", err.Error()
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, repository.ErrAlreadyReserved):
		return http.StatusConflict, "already_reserved", err.Error()
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict", err.Error()
	case errors.Is(err, repository.ErrCapacityViolation):
		return http.StatusUnprocessableEntity, "capacity_violation", err.Error()
	case errors.Is(err, repository.ErrConcurrencyConflict):
		return http.StatusServiceUnavailable, "concurrency_conflict", "the rooms are busy, retry the request"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "timeout", "the operation did not finish in time, retry the request"
	}
	return http.StatusInternalServerError, "internal", "internal error"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	}
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return "error"
}
