package ratelimit

import (
	"context"
	"time"
)

// Outcome of a single throttle check
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time // start of the next window
}

type Limiter interface {
	// Counts one request for key and reports whether it fits the current window
	Allow(ctx context.Context, key string) (Result, error)

	Limit() int

	Window() time.Duration
}

// windowBounds returns the index of the fixed window containing now and the instant it ends
func windowBounds(now time.Time, window time.Duration) (int64, time.Time) {
	size := int64(window / time.Second)
	if size <= 0 {
		size = 1
	}
	idx := now.Unix() / size
	return idx, time.Unix((idx+1)*size, 0).UTC()
}

func remaining(limit int, count int64) int {
	r := limit - int(count)
	if r < 0 {
		return 0
	}
	return r
}
