package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/ratelimiter"
)

// INCR + PEXPIRE tienen que ser atómicos para que dos réplicas no dupliquen
// la ventana, de ahí el script.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

type RedisLimiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, ttl time.Duration) (*ratelimiter.Result, error) {
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{"ratelimit:" + key}, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis limiter: %w", err)
	}
	if len(vals) < 2 {
		return nil, errors.New("redis limiter: respuesta inválida del script")
	}

	current, ttlMs := vals[0], vals[1]

	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := time.Duration(ttlMs) * time.Millisecond
	if ttlMs < 0 {
		resetAfter = ttl
	}

	return &ratelimiter.Result{
		Allowed:    current <= int64(limit),
		Remaining:  remaining,
		Reset:      time.Now().Add(resetAfter),
		RetryAfter: resetAfter,
	}, nil
}
