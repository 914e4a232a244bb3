package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arzan03/SecureDrop/internal/db"
	"github.com/arzan03/SecureDrop/internal/services"
	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Handler serves the HTTP API on top of the service layer.
type Handler struct {
	transfers *services.TransferService
	auth      *services.AuthService
	appName   string
	checks    map[string]HealthCheck
}

func New(transfers *services.TransferService, auth *services.AuthService, appName string, checks map[string]HealthCheck) *Handler {
	return &Handler{
		transfers: transfers,
		auth:      auth,
		appName:   appName,
		checks:    checks,
	}
}

// mapServiceError converts service-layer errors into HTTP responses.
func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrFileTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file exceeds maximum allowed size"})
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "transfer not found"})
	case errors.Is(err, services.ErrSessionExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "this transfer has expired"})
	case errors.Is(err, services.ErrAlreadyDownloaded):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "this file has already been downloaded"})
	case errors.Is(err, services.ErrInvalidKeyOrCorruptData):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid key or corrupt data"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	case errors.Is(err, services.ErrEmailInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already in use"})
	case errors.Is(err, services.ErrInvalidEmail), errors.Is(err, services.ErrWeakPassword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, db.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	case errors.Is(err, services.ErrStoreUnavailable), errors.Is(err, services.ErrCodeSpaceExhausted):
		slog.Error("backend unavailable", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service temporarily unavailable"})
	default:
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
