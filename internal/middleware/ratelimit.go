package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/metrics"
	"github.com/aman-churiwal/eligibility-engine/internal/ratelimit"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Throttle caps requests per client IP. A limiter failure lets the request
// through: the throttle protects the service and must not take it down.
// m may be nil.
func Throttle(limiter ratelimit.Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		result, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.WithError(err).WithField("client_ip", key).Warn("throttle: limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.Reset).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			if m != nil {
				m.ObserveThrottled()
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"limit":       limiter.Limit(),
				"retry_after": result.Reset.Unix(),
			})
			return
		}

		c.Next()
	}
}
