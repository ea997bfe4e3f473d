package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTooManyAttempts = errors.New("too many attempts")
)

// Counter is a shared expiring counter.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// LoginLimiter caps sign-in attempts per client IP and email inside a
// fixed window that starts at the first attempt.
type LoginLimiter struct {
	logger      *slog.Logger
	counter     Counter
	maxAttempts int64
	window      time.Duration
}

func NewLoginLimiter(logger *slog.Logger, counter Counter, maxAttempts int, window time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{logger: logger, counter: counter, maxAttempts: int64(maxAttempts), window: window}
}

func loginKey(ip, email string) string {
	return fmt.Sprintf("login_attempts:%s:%s", ip, strings.ToLower(strings.TrimSpace(email)))
}

// Check counts an attempt and returns ErrTooManyAttempts once the window is
// exhausted. A failing counter lets the attempt through.
func (l *LoginLimiter) Check(ctx context.Context, ip, email string) error {
	key := loginKey(ip, email)

	count, err := l.counter.Incr(ctx, key)
	if err != nil {
		l.logger.WarnContext(ctx, "Login limiter unavailable", "error", err)
		return nil
	}

	if count == 1 {
		if err := l.counter.Expire(ctx, key, l.window); err != nil {
			l.logger.WarnContext(ctx, "Failed to set login limiter window", "error", err)
		}
	}

	if count > l.maxAttempts {
		return ErrTooManyAttempts
	}
	return nil
}

// Reset clears the attempts after a successful sign-in.
func (l *LoginLimiter) Reset(ctx context.Context, ip, email string) error {
	if err := l.counter.Del(ctx, loginKey(ip, email)); err != nil {
		return fmt.Errorf("ratelimit: failed to reset attempts: %w", err)
	}
	return nil
}

type redisCounter struct {
	client redis.Cmdable
}

// NewRedisCounter adapts a go-redis client to Counter.
func NewRedisCounter(client redis.Cmdable) Counter {
	return redisCounter{client: client}
}

func (c redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

func (c redisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, key, ttl).Err()
}

func (c redisCounter) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: failed to ping redis: %w", err)
	}
	return client, nil
}
