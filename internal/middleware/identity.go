package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// Identity headers set by the authenticating edge (API gateway or session
// terminator). The core trusts them and does not re-validate identity.
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

// Identity resolves the acting user from the trusted edge headers and
// stores it in the request context. Requests without a parseable user ID
// stay anonymous; per-route guards decide whether that is acceptable.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(UserIDHeader)
			if raw == "" {
				return next(c)
			}

			userID, err := uuid.Parse(raw)
			if err != nil {
				return next(c)
			}

			role := domain.RoleCustomer
			if c.Request().Header.Get(UserRoleHeader) == domain.RoleStaff {
				role = domain.RoleStaff
			}

			ctx := domain.NewContextWithUser(c.Request().Context(), &domain.User{ID: userID, Role: role})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !domain.IsAuthenticated(c.Request().Context()) {
				return domain.Unauthorized("middleware.require_auth", "Authentication required")
			}
			return next(c)
		}
	}
}

// RequireStaff rejects requests whose user does not carry the staff role.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := domain.UserFromContext(c.Request().Context())
			if user == nil {
				return domain.Unauthorized("middleware.require_staff", "Authentication required")
			}
			if !user.IsStaff() {
				return domain.Forbidden("middleware.require_staff", "Staff access required")
			}
			return next(c)
		}
	}
}
