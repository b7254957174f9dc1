package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 250 * time.Millisecond

// RedisLimiter is a fixed-window limiter whose counters live in Redis, so
// replicas share one budget per identity. The window opens with the first
// attempt and closes when the key expires; Redis owns the clock.
type RedisLimiter struct {
	client  redis.Cmdable
	prefix  string
	limit   Limit
	timeout time.Duration
}

func NewRedisLimiter(client redis.Cmdable, prefix string, limit Limit) *RedisLimiter {
	if limit.Max <= 0 {
		limit.Max = 1
	}
	if limit.Window <= 0 {
		limit.Window = time.Minute
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, timeout: defaultRedisTimeout}
}

// Allow fails closed: an unreachable Redis denies the attempt.
func (l *RedisLimiter) Allow(key string, _ time.Time) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	k := l.prefix + ":" + key

	var count *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.limit.Window)
		count = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		slog.Error("rate limiter unavailable, denying attempt", "key", k, "error", err)
		return false
	}
	return count.Val() <= int64(l.limit.Max)
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
