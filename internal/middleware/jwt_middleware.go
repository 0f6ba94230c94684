package middleware

import (
	"strings"

	"ecofinds/internal/handlers/response"
	"ecofinds/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error("Authorization header is required", nil))
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error("Authorization header format must be 'Bearer <token>'", nil))
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logrus.WithField("request_id", c.Locals("requestid")).WithError(err).Info("JWT validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error("Invalid or expired token", err.Error()))
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error("Token carries no user", nil))
		}

		c.Locals("user_id", userID)
		c.Locals("username", claims["username"])
		return c.Next()
	}
}

// UserID returns the id AuthRequired stored for this request, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
