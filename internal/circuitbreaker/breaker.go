package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrOpen is returned without running the call while the breaker is open
var ErrOpen = errors.New("circuit breaker is open")

// Guards calls to a dependency and stops calling it after repeated failures
type Breaker struct {
	mu              sync.Mutex
	name            string
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastStateChange time.Time
	now             func() time.Time
	onStateChange   func(name string, from, to State)

	maxFailures     int
	cooldown        time.Duration
	halfOpenSuccess int
}

type Config struct {
	Name            string
	MaxFailures     int           // consecutive failures before opening (default 5)
	Cooldown        time.Duration // time spent open before a trial call (default 30s)
	HalfOpenSuccess int           // trial successes needed to close (default 1)

	// Called with the breaker lock held; must not call back into the breaker
	OnStateChange func(name string, from, to State)
}

func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenSuccess <= 0 {
		cfg.HalfOpenSuccess = 1
	}

	return &Breaker{
		name:            cfg.Name,
		state:           StateClosed,
		maxFailures:     cfg.MaxFailures,
		cooldown:        cfg.Cooldown,
		halfOpenSuccess: cfg.HalfOpenSuccess,
		onStateChange:   cfg.OnStateChange,
		now:             time.Now,
		lastStateChange: time.Now(),
	}
}

// Runs fn unless the breaker is open. A cancelled or expired caller context is
// not held against the dependency.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case err == nil:
		b.onSuccess()
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// caller went away; says nothing about the dependency
	default:
		b.onFailure()
	}

	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.lastFailureTime) < b.cooldown {
			return ErrOpen
		}
		b.setState(StateHalfOpen)
		b.successCount = 0
	}
	return nil
}

func (b *Breaker) onFailure() {
	b.failureCount++
	b.lastFailureTime = b.now()

	if b.state == StateHalfOpen || b.failureCount >= b.maxFailures {
		b.setState(StateOpen)
		b.successCount = 0
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.halfOpenSuccess {
			b.setState(StateClosed)
			b.failureCount = 0
		}
	case StateClosed:
		b.failureCount = 0
	}
}

func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	log.WithFields(log.Fields{
		"breaker": b.name,
		"from":    b.state.String(),
		"to":      next.String(),
	}).Warn("circuit breaker state change")

	prev := b.state
	b.state = next
	b.lastStateChange = b.now()

	if b.onStateChange != nil {
		b.onStateChange(b.name, prev, next)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Forces the breaker closed
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setState(StateClosed)
	b.failureCount = 0
	b.successCount = 0
}

// Snapshot of breaker counters, reported by the health endpoint
type Metrics struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	FailureCount    int       `json:"failureCount"`
	LastFailureTime time.Time `json:"lastFailureTime"`
	LastStateChange time.Time `json:"lastStateChange"`
}

func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Metrics{
		Name:            b.name,
		State:           b.state.String(),
		FailureCount:    b.failureCount,
		LastFailureTime: b.lastFailureTime,
		LastStateChange: b.lastStateChange,
	}
}
