package middleware

import (
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Records request counts and latency labelled by the matched route template
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
