package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginThrottle  fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Snapshot)
	}

	loginChain := []fiber.Handler{cfg.Users.Login}
	if cfg.LoginThrottle != nil {
		loginChain = append([]fiber.Handler{cfg.LoginThrottle}, loginChain...)
	}
	app.Post("/login", loginChain...)

	app.Get("/protected-data",
		cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RoleUser, domain.RoleAdmin),
		cfg.Users.ProtectedData)
}
