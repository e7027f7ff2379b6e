package middleware

import (
	"github.com/gofiber/fiber/v2"

	"eventfaces/pkg/logger"
	"eventfaces/pkg/utils"
)

// Protected validates host JWTs and sets the user context
func Protected(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.UnauthorizedResponse(c, "Missing authorization header")
		}

		token := utils.ExtractTokenFromHeader(authHeader)
		if token == "" {
			return utils.UnauthorizedResponse(c, "Invalid authorization header format")
		}

		userCtx, err := utils.ValidateToken(token, jwtSecret)
		if err != nil {
			logger.Debug(logger.CategoryAPI, "token_rejected", "Token validation failed", map[string]interface{}{
				"path":  c.Path(),
				"error": err.Error(),
			})
			switch err {
			case utils.ErrExpiredToken:
				return utils.UnauthorizedResponse(c, "Token has expired")
			case utils.ErrMissingToken:
				return utils.UnauthorizedResponse(c, "Missing token")
			default:
				return utils.UnauthorizedResponse(c, "Invalid token")
			}
		}

		c.Locals("user", userCtx)
		return c.Next()
	}
}

// AdminToken guards the log endpoints with a static token from header or query
func AdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		given := c.Get("X-Admin-Token")
		if given == "" {
			given = c.Query("token")
		}
		if token == "" || given != token {
			return utils.UnauthorizedResponse(c, "Invalid admin token")
		}
		return c.Next()
	}
}
