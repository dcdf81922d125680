package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/apex-career/backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, "login:", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "a@x.com")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "A@X.com ")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	other, err := l.Allow(ctx, "b@x.com")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestRedisLimiter_KeyExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, "", 1, time.Minute)
	_, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}

func TestRedisLimiter_UnavailableReturnsError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisLimiter(client, "", 1, time.Minute).Allow(context.Background(), "k")
	assert.Error(t, err)
}

// failExpire rejects EXPIRE and lets every other command through.
type failExpire struct{}

func (failExpire) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failExpire) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "expire" {
			err := errors.New("expire refused")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failExpire) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

var _ redis.Hook = failExpire{}

func TestRedisLimiter_ExpireFailureReturnsError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	client.AddHook(failExpire{})

	_, err := NewRedisLimiter(client, "", 5, time.Minute).Allow(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expire refused")
}

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "a@x.com")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(i), res.Hits)
	}

	res, err := l.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 50*time.Second, res.RetryAfter)

	now = now.Add(time.Minute)
	res, err = l.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Hits)
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := config.Default()

	l, closeFn, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, l)
	assert.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	cfg.Redis.Addr = mr.Addr()
	l, closeFn, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, l)
	assert.NoError(t, closeFn())

	cfg.RateLimit.LoginMax = 0
	l, _, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, l)
}
