package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"eventfaces/pkg/logger"
)

// LoggerMiddleware writes one api log entry per request
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				code, _ := StatusFor(err)
				status = code
			}
		}

		entry := logger.LogEntry{
			Level:    logger.LevelInfo,
			Category: logger.CategoryAPI,
			Action:   "request",
			Message:  c.Method() + " " + c.Path(),
			Duration: time.Since(start).String(),
			Data: map[string]interface{}{
				"status": status,
				"ip":     c.IP(),
			},
		}
		if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
			entry.RequestID = id
		}
		if eventID := c.Params("event_id"); eventID != "" {
			entry.EventID = eventID
		}
		if status >= fiber.StatusInternalServerError {
			entry.Level = logger.LevelError
		}
		logger.Default().Log(entry)
		return err
	}
}

func CorsMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	})
}

func RequestIDMiddleware() fiber.Handler {
	return requestid.New()
}

func RecoverMiddleware() fiber.Handler {
	return recover.New()
}
