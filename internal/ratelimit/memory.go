package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	window int64
	count  int64
}

// Fixed-window limiter kept in process memory, used when redis is not configured
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*memoryEntry
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewMemory(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		counters: make(map[string]*memoryEntry),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	idx, reset := windowBounds(m.now(), m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.counters[key]
	if entry == nil || entry.window != idx {
		entry = &memoryEntry{window: idx}
		m.counters[key] = entry
		m.evict(idx)
	}
	entry.count++

	return Result{
		Allowed:   entry.count <= int64(m.limit),
		Remaining: remaining(m.limit, entry.count),
		Reset:     reset,
	}, nil
}

// drops counters from past windows; called with mu held
func (m *MemoryLimiter) evict(current int64) {
	for key, entry := range m.counters {
		if entry.window < current {
			delete(m.counters, key)
		}
	}
}

func (m *MemoryLimiter) Limit() int {
	return m.limit
}

func (m *MemoryLimiter) Window() time.Duration {
	return m.window
}
