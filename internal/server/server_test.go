package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/config"
	"github.com/aman-churiwal/eligibility-engine/internal/service"
	"github.com/aman-churiwal/eligibility-engine/internal/storage/storagetest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Environment = config.EnvironmentTest
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = "memory"
	for _, fn := range mutate {
		fn(cfg)
	}

	return New(cfg, Dependencies{
		DB:       storagetest.NewDatabase(t),
		Clock:    service.FixedClock(now),
		Location: time.UTC,
	})
}

func do(t *testing.T, s *Server, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, body := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Equal(t, "closed", body["breaker"])
}

func TestEligibility_EndToEnd(t *testing.T) {
	s := newTestServer(t)

	w, policy := do(t, s, http.MethodPost, "/policies", map[string]interface{}{
		"name": "Five a day", "action": "api_call", "limit": 5, "window": "daily",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	for i := 0; i < 4; i++ {
		w, rec := do(t, s, http.MethodPost, "/eligibility/record", map[string]interface{}{
			"userId": "u1", "action": "api_call",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, rec["success"])
		assert.Equal(t, true, rec["recorded"])
		assert.NotEmpty(t, rec["actionId"])
		assert.Equal(t, "2024-01-15T10:30:00Z", rec["timestamp"])
	}

	w, body := do(t, s, http.MethodPost, "/eligibility/check", map[string]interface{}{
		"userId": "u1", "action": "api_call", "amount": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, service.MessageWithinLimits, body["message"])

	w, body = do(t, s, http.MethodPost, "/eligibility/check", map[string]interface{}{
		"userId": "u1", "action": "api_call", "amount": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["allowed"])
	assert.Equal(t, "Daily limit exceeded", body["reason"])
	assert.Equal(t, "Five a day", body["policyName"])
	assert.Equal(t, policy["id"], body["policyId"])
	assert.Equal(t, float64(4), body["used"])
	assert.Equal(t, float64(5), body["limit"])
	assert.Equal(t, float64(2), body["requested"])
	assert.Equal(t, "daily", body["window"])
	assert.Equal(t, "2024-01-15T00:00:00Z", body["windowStart"])
	assert.Equal(t, "2024-01-16T00:00:00Z", body["windowEnd"])

	// recording is never blocked by policies
	w, _ = do(t, s, http.MethodPost, "/eligibility/record", map[string]interface{}{
		"userId": "u1", "action": "api_call", "amount": 10,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = do(t, s, http.MethodGet, "/eligibility/history/u1?days=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", body["userId"])
	assert.Equal(t, float64(5), body["totalCount"])
	assert.Len(t, body["actions"], 5)

	// the recorder created the user
	w, body = do(t, s, http.MethodGet, "/users/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1@example.com", body["email"])
}

func TestEligibility_NoPolicyAllows(t *testing.T) {
	s := newTestServer(t)

	w, body := do(t, s, http.MethodPost, "/eligibility/check", map[string]interface{}{
		"userId": "u1", "action": "bulk_action", "amount": 10,
		"timestamp": "2024-01-01T12:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, service.MessageNoPolicy, body["message"])
}

func TestEligibility_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		path  string
		body  interface{}
		field string
	}{
		{"missing userId", "/eligibility/check", map[string]interface{}{"action": "api_call"}, "userId"},
		{"missing action", "/eligibility/record", map[string]interface{}{"userId": "u1"}, "action"},
		{"numeric userId", "/eligibility/check", `{"userId": 123, "action": "test"}`, "userId"},
		{"string amount", "/eligibility/check", `{"userId": "u1", "action": "test", "amount": "not-a-number"}`, "amount"},
		{"negative amount", "/eligibility/check", map[string]interface{}{"userId": "u1", "action": "a", "amount": -1}, "amount"},
		{"bad timestamp", "/eligibility/record", map[string]interface{}{"userId": "u1", "action": "a", "timestamp": "invalid-date-format"}, "timestamp"},
		{"malformed json", "/eligibility/check", `{"userId": "test", "action": malformed}`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, s, http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid request data", body["error"])

			details, ok := body["details"].([]interface{})
			require.True(t, ok, "details missing: %v", body)
			fields := make([]string, 0, len(details))
			for _, d := range details {
				fields = append(fields, d.(map[string]interface{})["field"].(string))
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestHistory_QueryEdgeCases(t *testing.T) {
	s := newTestServer(t)

	for _, days := range []string{"", "not-a-number", "-5", "9999999"} {
		w, body := do(t, s, http.MethodGet, "/eligibility/history/test-user?days="+days, nil)
		require.Equal(t, http.StatusOK, w.Code, "days=%q", days)
		assert.Equal(t, "test-user", body["userId"])
		assert.Equal(t, float64(0), body["totalCount"])
		assert.Empty(t, body["actions"])
	}
}

func TestPolicies_CRUD(t *testing.T) {
	s := newTestServer(t)

	w, created := do(t, s, http.MethodPost, "/policies", map[string]interface{}{
		"name": "Test Daily Limit", "action": "api_call", "limit": 100, "window": "daily",
		"rules": map[string]interface{}{"description": "Test policy"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := created["id"].(string)
	assert.Equal(t, "api_call", created["action"])
	assert.Equal(t, float64(100), created["limit"])
	assert.Equal(t, "daily", created["window"])
	assert.Equal(t, true, created["isActive"])
	assert.NotEmpty(t, created["createdAt"])

	w, got := do(t, s, http.MethodGet, "/policies/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"description": "Test policy"}, got["rules"])

	w, updated := do(t, s, http.MethodPut, "/policies/"+id, map[string]interface{}{
		"name": "Updated Policy Name", "action": "api_call", "limit": 200, "window": "weekly",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Updated Policy Name", updated["name"])
	assert.Equal(t, float64(200), updated["limit"])

	w, deactivated := do(t, s, http.MethodPost, "/policies/"+id+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Policy deactivated", deactivated["message"])
	assert.Equal(t, false, deactivated["isActive"])

	w, list := do(t, s, http.MethodGet, "/policies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, list["policies"])

	w, list = do(t, s, http.MethodGet, "/policies?includeInactive=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, list["policies"], 1)

	w, deleted := do(t, s, http.MethodDelete, "/policies/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Policy deleted", deleted["message"])

	w, _ = do(t, s, http.MethodGet, "/policies/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPolicies_Errors(t *testing.T) {
	s := newTestServer(t)
	valid := map[string]interface{}{"name": "x", "action": "y", "limit": 1, "window": "daily"}

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/policies/not-a-valid-uuid"},
		{http.MethodPut, "/policies/00000000-0000-0000-0000-000000000000"},
		{http.MethodDelete, "/policies/00000000-0000-0000-0000-000000000000"},
		{http.MethodPost, "/policies/00000000-0000-0000-0000-000000000000/deactivate"},
	} {
		w, body := do(t, s, req.method, req.path, valid)
		assert.Equal(t, http.StatusNotFound, w.Code, req.path)
		assert.Equal(t, "Policy not found", body["error"])
	}

	w, body := do(t, s, http.MethodPost, "/policies", map[string]interface{}{
		"name": "", "action": "test", "limit": -1, "window": "invalid",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid policy data", body["error"])
	assert.NotEmpty(t, body["details"])

	w, body = do(t, s, http.MethodPost, "/policies", `{"name": invalid json}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid policy data", body["error"])
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)

	w, body := do(t, s, http.MethodPost, "/users", map[string]interface{}{"userId": "alice", "email": "alice@corp.test"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "alice", body["id"])
	assert.Equal(t, "alice@corp.test", body["email"])
	assert.Equal(t, "active", body["status"])

	w, body = do(t, s, http.MethodPost, "/users", map[string]interface{}{"userId": "bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "bob@example.com", body["email"])

	w, body = do(t, s, http.MethodPost, "/users", map[string]interface{}{"userId": "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User already exists", body["error"])

	w, body = do(t, s, http.MethodPost, "/users", map[string]interface{}{"email": "test@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "userId is required", body["error"])

	w, body = do(t, s, http.MethodGet, "/users/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", body["error"])
}

func TestOperatorAuth(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = "test-secret"
	})
	policy := map[string]interface{}{"name": "p", "action": "a", "limit": 1, "window": "hourly"}

	w, _ := do(t, s, http.MethodPost, "/policies", policy)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodPost, "/auth/register", map[string]interface{}{
		"email": "ops@example.com", "password": "correct-horse", "name": "Ops",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := do(t, s, http.MethodPost, "/auth/login", map[string]interface{}{
		"email": "ops@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", body["error"])

	w, body = do(t, s, http.MethodPost, "/auth/login", map[string]interface{}{
		"email": "ops@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	token := body["token"].(string)

	w, _ = do(t, s, http.MethodPost, "/policies", policy, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, w.Code)

	// the eligibility surface stays open
	w, _ = do(t, s, http.MethodPost, "/eligibility/check", map[string]interface{}{"userId": "u", "action": "a"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestThrottle(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Throttle.RequestsPerMinute = 2
	})

	for i := 0; i < 2; i++ {
		w, _ := do(t, s, http.MethodGet, "/users/ghost", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	w, _ := do(t, s, http.MethodGet, "/users/ghost", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health is not throttled
	w, _ = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/eligibility/check", map[string]interface{}{"userId": "u", "action": "api_call"})

	w, _ := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `eligibility_decisions_total{action="api_call",outcome="allowed"} 1`)
	assert.Contains(t, w.Body.String(), `eligibility_circuit_breaker_state{breaker="eligibility-storage",state="closed"} 1`)
	assert.Contains(t, w.Body.String(), `eligibility_circuit_breaker_state{breaker="eligibility-storage",state="open"} 0`)
}

func TestBreakerEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, body := do(t, s, http.MethodGet, "/system/breaker", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "closed", body["state"])

	w, body = do(t, s, http.MethodPost, "/system/breaker/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "closed", body["state"])
}
