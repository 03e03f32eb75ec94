package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/JagadeshwaranK/MedPlusMart/internal/pkg/id"
	goredis "github.com/redis/go-redis/v9"
)

// slidingWindowLua admits one event if fewer than limit events were admitted
// in the last window milliseconds.
// KEYS[1] = sorted set of admissions (score = unix ms)
// ARGV[1] = now (ms), ARGV[2] = window (ms), ARGV[3] = limit, ARGV[4] = unique member
//
// Returns {allowed (0|1), count, oldest admission ms}.
var slidingWindowLua = goredis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  return {0, count, tonumber(oldest[2])}
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, count + 1, 0}
`)

// WindowLimiter is a rolling-window admission limiter shared through Redis.
type WindowLimiter struct {
	redis  goredis.UniversalClient
	prefix string
	limit  int
	window time.Duration
	nowF   func() time.Time
}

func NewWindowLimiter(client goredis.UniversalClient, prefix string, limit int, window time.Duration) *WindowLimiter {
	if prefix == "" {
		prefix = "otp"
	}
	return &WindowLimiter{redis: client, prefix: prefix, limit: limit, window: window, nowF: time.Now}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string) (domain.RateDecision, error) {
	now := l.nowF().UnixMilli()
	res, err := slidingWindowLua.Run(ctx, l.redis,
		[]string{l.prefix + ":issue:" + key},
		now,
		l.window.Milliseconds(),
		l.limit,
		id.New(),
	).Int64Slice()
	if err != nil {
		return domain.RateDecision{}, fmt.Errorf("rate limiter: %v: %w", err, domain.ErrUnavailable)
	}
	if len(res) != 3 {
		return domain.RateDecision{}, fmt.Errorf("rate limiter: unexpected reply %v: %w", res, domain.ErrUnavailable)
	}
	if res[0] == 1 {
		return domain.RateDecision{Allowed: true, Limit: l.limit, Remaining: l.limit - int(res[1])}, nil
	}
	retry := time.Duration(res[2]+l.window.Milliseconds()-now) * time.Millisecond
	return domain.RateDecision{Allowed: false, Limit: l.limit, RetryAfter: retry}, nil
}
