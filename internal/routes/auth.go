package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dsa-wrapper/dsa_wrapper/internal/auth"
)

// RegisterAuthRoutes wires wallet sign-in endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/challenge", rateLimiter, h.Challenge)
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/challenge", h.Challenge)
		group.Post("/login", h.Login)
	}
}
