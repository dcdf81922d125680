// Package ratelimit throttles login attempts with a fixed-window counter.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apex-career/backend/internal/config"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
	Hits       int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// New returns a redis-backed limiter when cfg.Redis.Addr is set and an
// in-process one otherwise. A zero LoginMax disables throttling.
func New(cfg config.Config) (Limiter, func() error, error) {
	noop := func() error { return nil }
	if cfg.RateLimit.LoginMax <= 0 {
		return Disabled{}, noop, nil
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return NewMemoryLimiter(cfg.RateLimit.LoginMax, cfg.RateLimit.LoginWindow), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return NewRedisLimiter(client, "login:", cfg.RateLimit.LoginMax, cfg.RateLimit.LoginWindow), client.Close, nil
}

// Disabled allows everything.
type Disabled struct{}

func (Disabled) Allow(context.Context, string) (Result, error) {
	return Result{Allowed: true}, nil
}

// RedisLimiter counts hits per key and window with INCR + EXPIRE.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := l.now().UTC().Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, normalizeKey(key), winStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", redisKey, err)
	}

	// first hit opens the window
	if incr.Val() == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire %s: %w", redisKey, err)
		}
		ttl = l.client.TTL(ctx, redisKey)
	}

	retryAfter := ttl.Val()
	if retryAfter <= 0 {
		retryAfter = l.window
	}
	return verdict(incr.Val(), l.max, retryAfter), nil
}

// MemoryLimiter keeps the window counters in process memory.
type MemoryLimiter struct {
	counters *cache.Cache
	max      int64
	window   time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		counters: cache.New(window, 2*window),
		max:      int64(max),
		window:   window,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	cacheKey := fmt.Sprintf("%s:%d", normalizeKey(key), winStart.Unix())
	retryAfter := winStart.Add(l.window).Sub(now)

	hits, err := l.counters.IncrementInt64(cacheKey, 1)
	if err != nil {
		if addErr := l.counters.Add(cacheKey, int64(1), l.window); addErr == nil {
			hits = 1
		} else if hits, err = l.counters.IncrementInt64(cacheKey, 1); err != nil {
			return Result{}, fmt.Errorf("rate limit %s: %w", cacheKey, err)
		}
	}
	return verdict(hits, l.max, retryAfter), nil
}

func verdict(hits, max int64, retryAfter time.Duration) Result {
	res := Result{
		Allowed:   hits <= max,
		Remaining: max - hits,
		Hits:      hits,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = retryAfter
	}
	return res
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
}
