package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow keeps one sorted-set member per hit scored by its time in ms.
// It returns {allowed, hits in window, ms until the oldest hit expires}.
//
//	KEYS[1] window key
//	ARGV    now_ms, window_ms, limit, member
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, now - window)
local count = redis.call('ZCARD', KEYS[1])

if count >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local wait = window - (now - (tonumber(oldest[2]) or now))
  if wait < 0 then wait = 0 end
  return {0, count, wait}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, count + 1, 0}
`)

// SlidingWindowLimiter caps hits per key over a rolling window. Rejected hits
// are not recorded, so a client that backs off regains capacity on time.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
}

func NewSlidingWindowLimiter(rdb *redis.Client, scope string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{rdb: rdb, scope: scope, limit: limit, window: window}
}

// Allow records a hit for key. A nil limiter, or one without a positive
// limit, allows everything.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	if l == nil || l.limit <= 0 {
		return true, 0, 0, nil
	}

	res, err := slidingWindow.Run(ctx, l.rdb,
		[]string{KeyRateLimit(l.scope, key)},
		time.Now().UnixMilli(), l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("redisrepo.SlidingWindowLimiter.Allow:%w", err)
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("redisrepo.SlidingWindowLimiter.Allow: unexpected script result %v", res)
	}

	return res[0] == 1, res[1], time.Duration(res[2]) * time.Millisecond, nil
}
