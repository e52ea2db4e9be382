package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Amirbeek/TinyDesk/internal/handlers"
)

// Setup registers the API routes. authLimiter throttles the unauthenticated
// flow entry points; requireAuth gates everything that needs an identity.
func Setup(app *fiber.App, h *handlers.Handler, authLimiter, requireAuth fiber.Handler) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	auth := api.Group("/auth", authLimiter)
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Get("/activate/:token", h.Activate)
	auth.Post("/resend-activation", h.ResendActivation)
	auth.Post("/reset-password-request", h.RequestReset)
	auth.Post("/reset-password/:token", h.ConfirmReset)
	auth.Get("/google", h.GoogleURL)
	auth.Get("/google/callback", h.GoogleCallback)

	api.Get("/me", requireAuth, h.Me)
}
