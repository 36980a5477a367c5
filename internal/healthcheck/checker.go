package healthcheck

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Probe checks one dependency. Critical probes make the service unhealthy
// when they fail; the others only degrade it.
type Probe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Performs periodic health checks on the service's dependencies
type Checker struct {
	mu          sync.RWMutex
	probes      []Probe
	status      map[string]*Status
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	stopChan    chan struct{}
	running     bool
}

// Holds health checker configuration
type Config struct {
	Interval    time.Duration // How often to check (default: 15s)
	Timeout     time.Duration // Per-probe timeout (default: 2s)
	MaxFailures int           // Failures before marking unhealthy (default: 1)
}

func NewChecker(cfg Config, probes ...Probe) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}

	checker := &Checker{
		probes:      probes,
		status:      make(map[string]*Status, len(probes)),
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		maxFailures: cfg.MaxFailures,
		stopChan:    make(chan struct{}),
	}

	for _, p := range probes {
		checker.status[p.Name] = &Status{
			Name:      p.Name,
			Critical:  p.Critical,
			IsHealthy: true, // Assume healthy until the first check
		}
	}

	return checker
}

// Begins periodic health checks
func (c *Checker) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"probes":   len(c.probes),
		"interval": c.interval,
	}).Info("health: starting dependency checks")

	c.CheckNow(context.Background())

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.CheckNow(context.Background())
			case <-c.stopChan:
				return
			}
		}
	}()
}

// Stops the health checker
func (c *Checker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		close(c.stopChan)
		c.running = false
		log.Info("health: checker stopped")
	}
}

// Runs every probe once, concurrently, and waits for all of them
func (c *Checker) CheckNow(ctx context.Context) {
	var wg sync.WaitGroup

	for _, p := range c.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			c.runProbe(ctx, p)
		}(p)
	}

	wg.Wait()
}

func (c *Checker) runProbe(ctx context.Context, p Probe) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := p.Check(ctx); err != nil {
		c.recordFailure(p.Name, err)
		return
	}
	c.recordSuccess(p.Name)
}

func (c *Checker) recordSuccess(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	status := c.status[name]
	status.LastCheck = now
	status.LastSuccess = now
	status.FailureCount = 0
	status.LastError = ""

	if !status.IsHealthy {
		log.WithField("dependency", name).Info("health: dependency recovered")
		status.IsHealthy = true
	}
}

func (c *Checker) recordFailure(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	status := c.status[name]
	status.LastCheck = now
	status.LastFailure = now
	status.FailureCount++
	status.LastError = err.Error()

	if status.IsHealthy && status.FailureCount >= c.maxFailures {
		log.WithError(err).WithFields(log.Fields{
			"dependency": name,
			"failures":   status.FailureCount,
		}).Warn("health: dependency is unhealthy")
		status.IsHealthy = false
	}
}

// Returns the health status of every dependency
func (c *Checker) GetAllStatus() map[string]Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statusMap := make(map[string]Status, len(c.status))
	for name, status := range c.status {
		statusMap[name] = *status
	}

	return statusMap
}

// Returns the overall health status
func (c *Checker) OverallHealth() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	overall := Healthy
	for _, status := range c.status {
		if status.IsHealthy {
			continue
		}
		if status.Critical {
			return Unhealthy
		}
		overall = Degraded
	}

	return overall
}
