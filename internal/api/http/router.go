package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	api := app.Group("/api/v1")

	api.Get("/live", cfg.Health.Live)
	api.Get("/ready", cfg.Health.Ready)
	api.Get("/metrics", cfg.Health.Metrics)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Get("/login", cfg.Auth.Login)
	authGroup.Get("/validate", cfg.Auth.Validate)
	authGroup.Get("/session", cfg.AuthMiddleware.Handle, cfg.Auth.Session)
}
