package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Increments the window counter and sets its expiry in one round trip, so a
// crash between the two calls cannot leave a counter that never expires.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Anything that can run a lua script against redis
type ScriptRunner interface {
	RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error)
}

type FixedWindowLimiter struct {
	redis  ScriptRunner
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewFixedWindow(redis ScriptRunner, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (f *FixedWindowLimiter) Allow(ctx context.Context, key string) (Result, error) {
	idx, reset := windowBounds(f.now(), f.window)
	redisKey := fmt.Sprintf("ratelimit:fixed:%s:%d", key, idx)

	ttl := int64(f.window / time.Second)
	if ttl <= 0 {
		ttl = 1
	}

	res, err := f.redis.RunScript(ctx, incrScript, []string{redisKey}, ttl)
	if err != nil {
		return Result{}, err
	}

	count, ok := res.(int64)
	if !ok {
		return Result{}, errors.New("ratelimit: unexpected redis response type")
	}

	return Result{
		Allowed:   count <= int64(f.limit),
		Remaining: remaining(f.limit, count),
		Reset:     reset,
	}, nil
}

func (f *FixedWindowLimiter) Limit() int {
	return f.limit
}

func (f *FixedWindowLimiter) Window() time.Duration {
	return f.window
}
