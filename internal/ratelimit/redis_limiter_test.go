package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "token-service:login:"

func newRedisLimiter(t *testing.T, cfg Config) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, testPrefix, cfg), mr
}

func TestRedisLimiter_AllowsThenBlocks(t *testing.T) {
	l, mr := newRedisLimiter(t, Config{Requests: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "attempt %d", i+1)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)
	assert.Equal(t, time.Minute, mr.TTL(testPrefix+"10.0.0.1"))

	d, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_RetryAfterFollowsRemainingWindow(t *testing.T) {
	l, mr := newRedisLimiter(t, Config{Requests: 1, Window: time.Minute})
	ctx := context.Background()

	_, err := l.Allow(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(20 * time.Second)
	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)
}

func TestRedisLimiter_WindowResets(t *testing.T) {
	l, mr := newRedisLimiter(t, Config{Requests: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Allow(ctx, "k")
		require.NoError(t, err)
	}

	mr.FastForward(time.Minute)
	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_CounterWithoutExpiryRecovers(t *testing.T) {
	l, mr := newRedisLimiter(t, Config{Requests: 5, Window: time.Minute})
	ctx := context.Background()

	// A counter left behind without a TTL, e.g. by an interrupted write.
	require.NoError(t, mr.Set(testPrefix+"10.0.0.1", "40"))

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)
	assert.Equal(t, time.Minute, mr.TTL(testPrefix+"10.0.0.1"))

	mr.FastForward(time.Minute)
	d, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	l, mr := newRedisLimiter(t, Config{Requests: 1, Window: time.Minute})
	mr.Close()

	_, err := l.Allow(context.Background(), "k")
	require.Error(t, err)
}
