package ratelimit

import (
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/storage"
)

// NewLimiter shares counters through redis when a client is available and
// falls back to per-process counters otherwise.
func NewLimiter(redis *storage.RedisClient, limit int, window time.Duration) Limiter {
	if redis == nil {
		return NewMemory(limit, window)
	}
	return NewFixedWindow(redis, limit, window)
}
