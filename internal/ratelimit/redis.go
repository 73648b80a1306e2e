package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow bumps the counter and starts its expiry on the first hit, in
// one round trip.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// Redis is a fixed-window limiter whose counters live in Redis.
type Redis struct {
	client *redis.Client
	prefix string
	rate   int
	window time.Duration
}

// NewRedis creates a limiter on an existing client. prefix namespaces keys
// so several limiters can share one database.
func NewRedis(client *redis.Client, prefix string, rate int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		rate:   rate,
		window: window,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Window returns the limiter's window length.
func (l *Redis) Window() time.Duration {
	return l.window
}

// Allow counts one request for key and reports whether it is within rate.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incrWindow.Run(ctx, l.client, []string{l.key(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return n <= int64(l.rate), nil
}

func (l *Redis) key(k string) string {
	return l.prefix + ":" + k
}
