package middleware

import (
	"github.com/arzan03/SecureDrop/internal/models"
	"github.com/gofiber/fiber/v2"
)

// AdminMiddleware ensures that only users with "admin" role can access admin
// routes. It must run after AuthMiddleware.
func AdminMiddleware(c *fiber.Ctx) error {
	if Role(c) != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied. Admins only."})
	}
	return c.Next()
}
