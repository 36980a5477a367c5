package healthcheck

import "time"

type Status struct {
	Name         string    `json:"name"`
	Critical     bool      `json:"critical"`
	IsHealthy    bool      `json:"healthy"`
	LastCheck    time.Time `json:"lastCheck"`
	LastSuccess  time.Time `json:"lastSuccess"`
	LastFailure  time.Time `json:"lastFailure"`
	FailureCount int       `json:"failureCount"`
	LastError    string    `json:"lastError,omitempty"`
}

// Represents overall health of the service
type HealthStatus int

const (
	Healthy HealthStatus = iota
	Degraded
	Unhealthy
)

func (h HealthStatus) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}
