package handler

import (
	"net/http"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/circuitbreaker"
	"github.com/aman-churiwal/eligibility-engine/internal/healthcheck"
	"github.com/gin-gonic/gin"
)

// Handles system-related endpoints
type SystemHandler struct {
	health  *healthcheck.Checker
	breaker *circuitbreaker.Breaker
	started time.Time
}

func NewSystemHandler(health *healthcheck.Checker, breaker *circuitbreaker.Breaker) *SystemHandler {
	return &SystemHandler{
		health:  health,
		breaker: breaker,
		started: time.Now(),
	}
}

// Handles GET /health. A failing critical dependency answers 503.
func (h *SystemHandler) Health(c *gin.Context) {
	overall := h.health.OverallHealth()

	status := "ok"
	statusCode := http.StatusOK
	switch overall {
	case healthcheck.Degraded:
		status = overall.String()
	case healthcheck.Unhealthy:
		status = overall.String()
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"checks":    h.health.GetAllStatus(),
		"breaker":   h.breaker.State().String(),
	})
}

// Returns the state of the storage circuit breaker
func (h *SystemHandler) CircuitBreakerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.breaker.Metrics())
}

// Manually resets the storage circuit breaker
func (h *SystemHandler) ResetCircuitBreaker(c *gin.Context) {
	h.breaker.Reset()

	c.JSON(http.StatusOK, gin.H{
		"message": "Circuit breaker reset successfully",
		"state":   h.breaker.State().String(),
	})
}
