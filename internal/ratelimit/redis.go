package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims expired entries, then records the call when the
// window still has room. Returns 1 when allowed, 0 otherwise.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)
	if current >= limit then
		return 0
	end

	local seq = redis.call('INCR', key .. ':seq')
	redis.call('ZADD', key, now, now .. ':' .. seq)
	local ttl = math.ceil(window_ms / 1000)
	redis.call('EXPIRE', key, ttl)
	redis.call('EXPIRE', key .. ':seq', ttl)
	return 1
`)

// Redis is a sliding window limiter shared by every gateway instance using
// the same Redis.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedis creates a Redis backed limiter. perMinute <= 0 disables limiting.
func NewRedis(client redis.UniversalClient, keyPrefix string, perMinute int) Limiter {
	if perMinute <= 0 {
		return Nop{}
	}
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     perMinute,
		window:    Window,
	}
}

// Allow records one call for key if the window has room.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	res, err := slidingWindow.Run(ctx, l.client, []string{l.keyPrefix + key},
		now.UnixMilli(), now.Add(-l.window).UnixMilli(), l.limit, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

// Forget is a no-op; Redis keys expire on their own.
func (l *Redis) Forget(string) {}

// Reset clears the window of key.
func (l *Redis) Reset(ctx context.Context, key string) error {
	k := l.keyPrefix + key
	return l.client.Del(ctx, k, k+":seq").Err()
}
