package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/ratelimit"
	"github.com/spec-kit/token-service/internal/service"
)

// Dependencies are the collaborators needed to serve the API.
type Dependencies struct {
	Name           string
	Version        string
	RequestTimeout time.Duration

	Authenticator *auth.Authenticator
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics

	// LoginLimiter is optional; nil disables login throttling.
	LoginLimiter ratelimit.Limiter
	LoginLimit   ratelimit.Config

	Health map[string]handlers.Pinger
}

// NewApp builds the fiber application with middlewares and routes registered.
func NewApp(deps Dependencies) *fiber.App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	authService := service.NewAuthService(service.AuthDependencies{
		Authenticator: deps.Authenticator,
		Dispatcher:    deps.Dispatcher,
		Metrics:       deps.Metrics,
		Logger:        logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               deps.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, deps.Metrics, deps.RequestTimeout)

	routes := RouteConfig{
		Health:         handlers.NewHealthHandler(deps.Name, deps.Version, deps.Health),
		Users:          handlers.NewUsersHandler(authService),
		Metrics:        handlers.NewMetricsHandler(deps.Metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
	}
	if deps.LoginLimiter != nil {
		routes.LoginThrottle = ratelimit.Middleware(deps.LoginLimiter, deps.LoginLimit, logger)
	}
	RegisterRoutes(app, routes)

	return app
}
