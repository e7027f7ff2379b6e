package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"eventfaces/pkg/config"
)

// FindYourselfLimiter bounds guest selfie searches per client and event
func FindYourselfLimiter(cfg config.RateLimitConfig) fiber.Handler {
	if cfg.FindYourselfMax <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	window := cfg.FindYourselfWindow
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        cfg.FindYourselfMax,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + ":" + c.Params("event_id")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many searches. Please try again later.",
				"error":   "RATE_LIMIT_EXCEEDED",
			})
		},
	})
}
