// Package handler provides the HTTP surface shared by all API handlers:
// the response envelope, error rendering and request validation.
package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// Envelope is the uniform response shape. Success responses carry Data,
// failures carry Errors; the two never appear together.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Errors  *ErrorBody `json:"errors,omitempty"`
}

// ErrorBody is the failure half of the envelope.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// OK writes a success envelope with the given status.
func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// CurrentUser returns the authenticated user from the request context, or
// nil when the request is anonymous.
func CurrentUser(c echo.Context) *domain.User {
	return domain.UserFromContext(c.Request().Context())
}

// RequireUser returns the authenticated user or an unauthorized error.
func RequireUser(c echo.Context) (*domain.User, error) {
	user := CurrentUser(c)
	if user == nil {
		return nil, domain.Unauthorized("handler.identity", "Authentication required")
	}
	return user, nil
}
