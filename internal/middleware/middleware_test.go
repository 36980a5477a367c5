package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/metrics"
	"github.com/aman-churiwal/eligibility-engine/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	w = serve(r, req)
	assert.Equal(t, "caller-id", w.Body.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

type stubLimiter struct {
	result ratelimit.Result
	err    error
}

func (s stubLimiter) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	return s.result, s.err
}
func (s stubLimiter) Limit() int { return 5 }
func (s stubLimiter) Window() time.Duration { return time.Minute }

func throttled(l ratelimit.Limiter) *gin.Engine {
	r := gin.New()
	r.Use(Throttle(l, metrics.New()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestThrottle(t *testing.T) {
	reset := time.Now().Add(30 * time.Second)

	t.Run("allowed", func(t *testing.T) {
		w := serve(throttled(stubLimiter{result: ratelimit.Result{Allowed: true, Remaining: 4, Reset: reset}}),
			httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("rejected", func(t *testing.T) {
		w := serve(throttled(stubLimiter{result: ratelimit.Result{Allowed: false, Reset: reset}}),
			httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("limiter failure lets requests through", func(t *testing.T) {
		w := serve(throttled(stubLimiter{err: errors.New("redis down")}),
			httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("memory limiter end to end", func(t *testing.T) {
		r := throttled(ratelimit.NewMemory(1, time.Hour))
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	})
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (jwt.MapClaims, error) {
	if token != "good" {
		return nil, errors.New("invalid")
	}
	return jwt.MapClaims{"admin_id": "a1", "email": "ops@example.com", "role": "admin"}, nil
}

func TestRequireAuth(t *testing.T) {
	r := gin.New()
	r.Use(RequireAuth(stubValidator{}))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(EmailKey))
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			require.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "ops@example.com", w.Body.String())
			}
		})
	}
}
