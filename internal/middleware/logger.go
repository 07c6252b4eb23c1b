package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// RequestLogger injects a request-scoped logger carrying request_id,
// method, path and the acting user, and writes one access log line per
// request. Place it after RequestID and Identity in the chain.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			logCtx := base.With().
				Str("method", req.Method).
				Str("path", req.URL.Path)

			if requestID := domain.RequestIDFromContext(req.Context()); requestID != "" {
				logCtx = logCtx.Str("request_id", requestID)
			}
			if user := domain.UserFromContext(req.Context()); user != nil {
				logCtx = logCtx.Str("user_id", user.ID.String())
			}

			logger := logCtx.Logger()
			ctx := logger.WithContext(req.Context())
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				// Let the error handler render before logging the status.
				c.Error(err)
			}

			logger.Info().
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Int64("bytes", c.Response().Size).
				Msg("request")

			return nil
		}
	}
}
