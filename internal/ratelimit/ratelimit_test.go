package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCounter struct {
	counts  map[string]int64
	ttls    map[string]time.Duration
	failing bool
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCounter) Incr(ctx context.Context, key string) (int64, error) {
	if c.failing {
		return 0, errors.New("connection refused")
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *memoryCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCounter) Del(ctx context.Context, key string) error {
	delete(c.counts, key)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoginLimiter(t *testing.T) {
	counter := newMemoryCounter()
	l := NewLoginLimiter(discard(), counter, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Check(ctx, "10.0.0.1", "ops@example.test"))
	}
	assert.ErrorIs(t, l.Check(ctx, "10.0.0.1", "OPS@example.test"), ErrTooManyAttempts)
	assert.Equal(t, 15*time.Minute, counter.ttls[loginKey("10.0.0.1", "ops@example.test")])

	// Another client is counted separately.
	assert.NoError(t, l.Check(ctx, "10.0.0.2", "ops@example.test"))

	require.NoError(t, l.Reset(ctx, "10.0.0.1", "ops@example.test"))
	assert.NoError(t, l.Check(ctx, "10.0.0.1", "ops@example.test"))
}

func TestLoginLimiterFailsOpen(t *testing.T) {
	counter := newMemoryCounter()
	counter.failing = true
	l := NewLoginLimiter(discard(), counter, 1, time.Minute)

	for i := 0; i < 3; i++ {
		assert.NoError(t, l.Check(context.Background(), "10.0.0.1", "ops@example.test"))
	}
}

func TestLoginLimiterDefaults(t *testing.T) {
	l := NewLoginLimiter(discard(), newMemoryCounter(), 0, 0)
	assert.Equal(t, int64(5), l.maxAttempts)
	assert.Equal(t, 15*time.Minute, l.window)
}

func TestRedisCounter(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	l := NewLoginLimiter(discard(), NewRedisCounter(client), 2, time.Minute)
	key := "it-" + time.Now().Format(time.RFC3339Nano)
	defer l.Reset(ctx, "127.0.0.1", key)

	require.NoError(t, l.Check(ctx, "127.0.0.1", key))
	require.NoError(t, l.Check(ctx, "127.0.0.1", key))
	assert.ErrorIs(t, l.Check(ctx, "127.0.0.1", key), ErrTooManyAttempts)
}
