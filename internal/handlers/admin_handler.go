package handlers

import (
	"github.com/arzan03/SecureDrop/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// List all users
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers(c.UserContext())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(users)
}

// Get user details by ID
func (h *Handler) GetUserByID(c *fiber.Ctx) error {
	user, err := h.auth.GetUser(c.UserContext(), c.Params("userid"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(user)
}

// List every transfer session
func (h *Handler) ListAllTransfers(c *fiber.Ctx) error {
	list, err := h.transfers.ListAll(c.UserContext())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"transfers": list, "count": len(list)})
}

// Force delete a transfer (Admin Only)
func (h *Handler) AdminDeleteTransfer(c *fiber.Ctx) error {
	if err := h.transfers.AdminDelete(c.UserContext(), c.Params("code"), middleware.UserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transfer deleted successfully"})
}
