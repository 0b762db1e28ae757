package ratelimit

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/token-service/pkg/util"
)

// Middleware throttles requests per client IP. Limiter failures are logged
// and the request is let through.
func Middleware(limiter Limiter, cfg Config, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		decision, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable; allowing request", zap.Error(err))
			return c.Next()
		}
		if decision.Allowed {
			return c.Next()
		}

		retryAfter := int(math.Max(1, math.Ceil(decision.RetryAfter.Seconds())))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Set("X-RateLimit-Window", cfg.Window.String())

		logger.Warn("rate limit exceeded",
			zap.String("ip", key),
			zap.String("path", c.Path()),
			zap.Int("retry_after", retryAfter))
		return apperrors.NewTooManyRequests("too many requests, try again later")
	}
}
