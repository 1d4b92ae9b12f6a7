package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log per request. Authenticated requests carry the
// caller address; the account path parameter is logged when present.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if reqID := RequestIDFrom(c); reqID != "" {
			attrs = append(attrs, slog.String("request_id", reqID))
		}
		if caller, ok := Caller(c); ok {
			attrs = append(attrs, slog.String("caller", caller.Hex()))
		}
		if account := c.Params("accountId"); account != "" {
			attrs = append(attrs, slog.String("account_id", account))
		}
		if err != nil {
			// The error handler has not run yet, so report its status.
			var fe *fiber.Error
			if errors.As(err, &fe) {
				attrs[2] = slog.Int("status", fe.Code)
			}
			attrs = append(attrs, slog.Any("error", err))
			logger.Warn("request failed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
