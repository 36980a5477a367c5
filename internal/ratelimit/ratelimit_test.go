package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Emulates the INCR script against an in-memory map
type fakeRedis struct {
	counts map[string]int64
	ttls   map[string]interface{}
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, ttls: map[string]interface{}{}}
}

func (f *fakeRedis) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.counts[keys[0]]++
	if f.counts[keys[0]] == 1 {
		f.ttls[keys[0]] = args[0]
	}
	return f.counts[keys[0]], nil
}

func TestFixedWindow_AllowsUpToLimit(t *testing.T) {
	store := newFakeRedis()
	limiter := NewFixedWindow(store, 3, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC), res.Reset)
	}

	res, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	// other clients have their own counter
	res, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// next window starts fresh
	now = now.Add(time.Minute)
	res, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	for _, ttl := range store.ttls {
		assert.Equal(t, int64(60), ttl)
	}
}

func TestFixedWindow_PropagatesRedisErrors(t *testing.T) {
	store := newFakeRedis()
	store.err = errors.New("redis down")

	_, err := NewFixedWindow(store, 1, time.Minute).Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestMemoryLimiter(t *testing.T) {
	limiter := NewMemory(2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	r1, _ := limiter.Allow(ctx, "a")
	r2, _ := limiter.Allow(ctx, "a")
	r3, _ := limiter.Allow(ctx, "a")
	assert.True(t, r1.Allowed)
	assert.True(t, r2.Allowed)
	assert.False(t, r3.Allowed)

	now = now.Add(2 * time.Minute)
	r4, _ := limiter.Allow(ctx, "a")
	assert.True(t, r4.Allowed)
	assert.Equal(t, 1, r4.Remaining)
	assert.Len(t, limiter.counters, 1)
}

func TestNewLimiter_WithoutRedis(t *testing.T) {
	limiter := NewLimiter(nil, 10, time.Minute)
	assert.IsType(t, &MemoryLimiter{}, limiter)
	assert.Equal(t, 10, limiter.Limit())
	assert.Equal(t, time.Minute, limiter.Window())
}
