package handlers

import (
	"time"

	"github.com/arzan03/SecureDrop/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers every API route on app. rateLimitMax caps uploads
// per client per minute; zero disables the limit.
func SetupRoutes(app *fiber.App, h *Handler, rateLimitMax int) {
	requireAuth := middleware.AuthMiddleware(h.auth)

	uploadLimit := func(c *fiber.Ctx) error { return c.Next() }
	if rateLimitMax > 0 {
		uploadLimit = limiter.New(limiter.Config{
			Max:        rateLimitMax,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many uploads, slow down"})
			},
		})
	}

	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Auth Routes
	auth := app.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/anonymous", h.Anonymous)

	// Transfer Routes
	app.Post("/transfer", requireAuth, uploadLimit, h.UploadTransfer)
	app.Get("/transfer", requireAuth, h.ListTransfers)
	app.Get("/transfer/:code", h.GetTransfer)
	app.Get("/transfer/:code/download", h.DownloadTransfer)
	app.Delete("/transfer/:code", requireAuth, h.DeleteTransfer)

	// Share link target
	app.Get("/receive/:code", h.DownloadTransfer)

	// Admin Routes
	admin := app.Group("/admin", requireAuth, middleware.AdminMiddleware)
	admin.Get("/users", h.ListUsers)
	admin.Get("/user/:userid", h.GetUserByID)
	admin.Get("/transfers", h.ListAllTransfers)
	admin.Delete("/transfer/:code", h.AdminDeleteTransfer)
}
