package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EGONE:
		return http.StatusGone
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	case domain.EINTERNAL:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// httpStatusToErrorCode maps statuses raised by the framework itself
// (route misses, oversized bodies, bind failures) back into domain codes.
func httpStatusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.EINVALID
	case http.StatusUnauthorized:
		return domain.EUNAUTHORIZED
	case http.StatusPaymentRequired:
		return domain.EPAYMENT
	case http.StatusForbidden:
		return domain.EFORBIDDEN
	case http.StatusNotFound:
		return domain.ENOTFOUND
	case http.StatusMethodNotAllowed:
		return domain.EINVALID
	case http.StatusConflict:
		return domain.ECONFLICT
	case http.StatusGone:
		return domain.EGONE
	case http.StatusRequestEntityTooLarge:
		return domain.ETOOLARGE
	case http.StatusTooManyRequests:
		return domain.ERATELIMIT
	case http.StatusNotImplemented:
		return domain.ENOTIMPL
	default:
		return domain.EINTERNAL
	}
}

// ErrorHandler renders every error escaping a handler as the standard
// envelope. Internal errors are logged with their operation and surfaced
// with a generic message.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := errorBodyFor(err)
		status := ErrorCodeToHTTPStatus(body.Code)

		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("op", domain.ErrorOp(err)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Str("request_id", domain.RequestIDFromContext(c.Request().Context())).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, Envelope{Success: false, Errors: &body})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

func errorBodyFor(err error) ErrorBody {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := httpStatusToErrorCode(httpErr.Code)
		message := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok && code != domain.EINTERNAL {
			message = s
		}
		if code == domain.EINTERNAL {
			message = "An internal error occurred. Please try again later."
		}
		return ErrorBody{Code: code, Message: message}
	}

	if domain.IsValidationError(err) {
		return ErrorBody{
			Code:    domain.EINVALID,
			Message: "Validation failed",
			Fields:  domain.GetValidationFields(err),
		}
	}

	return ErrorBody{
		Code:    domain.ErrorCode(err),
		Message: domain.ErrorMessage(err),
	}
}

// Bind decodes the request body into v and runs the registered validator,
// normalizing echo's bind failures into domain errors.
func Bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusBadRequest {
			return domain.Invalid("handler.bind", fmt.Sprintf("malformed request body: %v", httpErr.Message))
		}
		return err
	}
	return c.Validate(v)
}
