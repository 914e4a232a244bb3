package handlers

import (
	"github.com/arzan03/SecureDrop/internal/models"
	"github.com/gofiber/fiber/v2"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var request credentials
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.auth.Register(c.UserContext(), request.Email, request.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User registered successfully", "user": user})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var request credentials
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	token, user, err := h.auth.Login(c.UserContext(), request.Email, request.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"role":  user.Role,
	})
}

// Anonymous signs a browser in without an account.
func (h *Handler) Anonymous(c *fiber.Ctx) error {
	token, userID, err := h.auth.Anonymous()
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"token":   token,
		"user_id": userID,
		"role":    models.RoleAnonymous,
	})
}
