package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/token-service/pkg/util"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg Config) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(cfg)
	l.now = clock.Now
	l.lastCleanup = clock.t
	return l, clock
}

func TestMemoryLimiter_AllowsBurstThenBlocks(t *testing.T) {
	l, _ := newTestLimiter(Config{Requests: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "attempt %d", i+1)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, 21*time.Second)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(Config{Requests: 1, Window: time.Minute})
	ctx := context.Background()

	d, _ := l.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	d, _ = l.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_Refills(t *testing.T) {
	l, clock := newTestLimiter(Config{Requests: 2, Window: time.Minute})
	ctx := context.Background()

	_, _ = l.Allow(ctx, "k")
	_, _ = l.Allow(ctx, "k")
	d, _ := l.Allow(ctx, "k")
	require.False(t, d.Allowed)

	clock.Advance(31 * time.Second)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(Config{Requests: 1, Window: time.Minute})
	ctx := context.Background()

	_, _ = l.Allow(ctx, "idle")
	clock.Advance(10 * time.Minute)
	_, _ = l.Allow(ctx, "fresh")

	_, ok := l.limiters.Load("idle")
	assert.False(t, ok)
}

func TestConfig_Enabled(t *testing.T) {
	assert.True(t, Config{Requests: 5, Window: time.Minute}.Enabled())
	assert.False(t, Config{Requests: 0, Window: time.Minute}.Enabled())
	assert.False(t, Config{Requests: 5}.Enabled())
}

type stubLimiter struct {
	decision Decision
	err      error
}

func (s stubLimiter) Allow(context.Context, string) (Decision, error) { return s.decision, s.err }

func newThrottledApp(l Limiter) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code}})
		},
	})
	cfg := Config{Requests: 5, Window: time.Minute}
	app.Post("/login", Middleware(l, cfg, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		limiter    Limiter
		wantStatus int
		wantRetry  string
	}{
		{name: "allowed", limiter: stubLimiter{decision: Decision{Allowed: true}}, wantStatus: fiber.StatusOK},
		{name: "blocked", limiter: stubLimiter{decision: Decision{RetryAfter: 1500 * time.Millisecond}}, wantStatus: fiber.StatusTooManyRequests, wantRetry: "2"},
		{name: "limiter error fails open", limiter: stubLimiter{err: errors.New("redis down")}, wantStatus: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newThrottledApp(tt.limiter).Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantRetry, resp.Header.Get(fiber.HeaderRetryAfter))
		})
	}
}
