// Package ratelimit throttles login attempts per client key.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether another attempt from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Config describes a limit of Requests per Window.
type Config struct {
	Requests int
	Window   time.Duration
}

// Enabled reports whether the config describes an actual limit.
func (c Config) Enabled() bool {
	return c.Requests > 0 && c.Window > 0
}

// MemoryLimiter keeps a token bucket per key in process memory.
type MemoryLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	now      func() time.Time

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter builds a limiter refilling Requests tokens per Window.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		rate:        rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:       cfg.Requests,
		now:         time.Now,
		lastCleanup: time.Now(),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	limiter := l.getLimiter(key, now)
	if limiter.AllowN(now, 1) {
		return Decision{Allowed: true}, nil
	}

	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return Decision{Allowed: false, RetryAfter: delay}, nil
}

func (l *MemoryLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	l.maybeCleanup(now)
	return actual.(*rate.Limiter)
}

// maybeCleanup drops buckets that have refilled completely, at most every five minutes.
func (l *MemoryLimiter) maybeCleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = now

	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).TokensAt(now) >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

// fixedWindowScript increments the counter and returns it with the remaining
// window in milliseconds. A counter without an expiry gets one, so a key can
// never outlive its window.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter applies a fixed window shared by every instance using the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	cfg    Config
}

// NewRedisLimiter builds a limiter storing counters under prefix.
func NewRedisLimiter(client *redis.Client, prefix string, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, cfg: cfg}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := l.prefix + key

	res, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("count %s: %w", redisKey, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("count %s: unexpected reply %v", redisKey, res)
	}

	if res[0] <= int64(l.cfg.Requests) {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}
