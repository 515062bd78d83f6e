package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-auth/internal/api/http/handlers"
	"github.com/spec-kit/travel-auth/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimit      fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/api/auth")
	if cfg.RateLimit != nil {
		authGroup.Use(cfg.RateLimit)
	}

	authGroup.Post("/login", cfg.Auth.LoginConsumer)
	authGroup.Post("/business/login", cfg.Auth.LoginBusiness)
	authGroup.Post("/admin/login", cfg.Auth.LoginAdmin)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Post("/logout/all", cfg.Auth.LogoutAll)
	protected.Get("/session", cfg.Auth.Session)
}
