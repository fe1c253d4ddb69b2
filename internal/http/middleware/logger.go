package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"batiflow/internal/logger"
)

// Logger emits one structured access log line per request. The request ID
// comes from context locals set by RequestID, so this must be registered
// after it.
func Logger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		log.Infow("request",
			"request_id", rid,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", float64(time.Since(start).Microseconds())/1000.0,
		)

		return err
	}
}
