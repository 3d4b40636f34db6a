package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const bucketKeyPrefix = "ratelimit:"

// allowScript counts the request and stamps the window TTL on first use, all
// server-side, so concurrent instances agree on the count. Returns the count
// after this request and the remaining window in milliseconds.
var allowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if count > tonumber(ARGV[2]) then
	redis.call('DECR', KEYS[1])
	return {0, ttl}
end
return {count, ttl}
`)

// RedisStore is a fixed-window limiter shared across instances.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	raw, err := allowScript.Run(ctx, s.client,
		[]string{bucketKeyPrefix + key}, window.Milliseconds(), limit).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}
	if len(raw) != 2 {
		return Result{}, fmt.Errorf("rate limit check: unexpected reply %v", raw)
	}

	count, _ := raw[0].(int64)
	ttlMillis, _ := raw[1].(int64)
	resetAt := time.Now().Add(time.Duration(ttlMillis) * time.Millisecond)

	if count == 0 {
		return Result{Allowed: false, ResetAt: resetAt, Limit: limit}, nil
	}
	return Result{
		Allowed:   true,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
		Limit:     limit,
	}, nil
}
