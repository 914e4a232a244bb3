package middleware

import (
	"strings"

	"github.com/arzan03/SecureDrop/internal/services"
	"github.com/gofiber/fiber/v2"
)

// TokenParser verifies a bearer token.
type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// AuthMiddleware validates the JWT and stores user_id and role in Locals.
func AuthMiddleware(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token format"})
		}

		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" on public routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// Role returns the authenticated role, or "".
func Role(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}
