package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 HealthHandler 测试
// =============================================================================

func ping(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func TestHealthHandler_Liveness(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())

	for _, path := range []string{"/health", "/healthz"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, "healthy", status.Status)
			assert.False(t, status.Timestamp.IsZero())
		})
	}
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name           string
		checks         []HealthCheck
		expectedStatus int
		checkStatus    func(*testing.T, *HealthStatus)
	}{
		{
			name:           "no checks - ready",
			expectedStatus: http.StatusOK,
			checkStatus: func(t *testing.T, status *HealthStatus) {
				assert.Equal(t, "healthy", status.Status)
			},
		},
		{
			name:           "all checks pass",
			checks:         []HealthCheck{NewCheck("database", ping(nil)), NewCheck("redis", ping(nil))},
			expectedStatus: http.StatusOK,
			checkStatus: func(t *testing.T, status *HealthStatus) {
				assert.Equal(t, "healthy", status.Status)
				assert.Len(t, status.Checks, 2)
				assert.Equal(t, "pass", status.Checks["database"].Status)
				assert.Equal(t, "pass", status.Checks["redis"].Status)
			},
		},
		{
			name:           "database fails",
			checks:         []HealthCheck{NewCheck("database", ping(errors.New("connection refused"))), NewOptionalCheck("redis", ping(nil))},
			expectedStatus: http.StatusServiceUnavailable,
			checkStatus: func(t *testing.T, status *HealthStatus) {
				assert.Equal(t, StatusUnhealthy, status.Status)
				assert.Equal(t, "fail", status.Checks["database"].Status)
				assert.Equal(t, "connection refused", status.Checks["database"].Message)
				assert.Equal(t, "pass", status.Checks["redis"].Status)
			},
		},
		{
			name:           "optional redis fails",
			checks:         []HealthCheck{NewCheck("database", ping(nil)), NewOptionalCheck("redis", ping(errors.New("connection refused")))},
			expectedStatus: http.StatusOK,
			checkStatus: func(t *testing.T, status *HealthStatus) {
				assert.Equal(t, StatusDegraded, status.Status)
				assert.Equal(t, "fail", status.Checks["redis"].Status)
				assert.True(t, status.Checks["redis"].Optional)
			},
		},
		{
			name:           "required failure outranks degraded",
			checks:         []HealthCheck{NewOptionalCheck("redis", ping(errors.New("down"))), NewCheck("database", ping(errors.New("down")))},
			expectedStatus: http.StatusServiceUnavailable,
			checkStatus: func(t *testing.T, status *HealthStatus) {
				assert.Equal(t, StatusUnhealthy, status.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(zap.NewNop())
			for _, c := range tt.checks {
				h.RegisterCheck(c)
			}

			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			tt.checkStatus(t, &status)
		})
	}
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	handler := NewHealthHandler(nil)

	w := httptest.NewRecorder()
	handler.HandleVersion("1.0.0", "2026-01-01T00:00:00Z", "abc123")(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"version":"1.0.0","build_time":"2026-01-01T00:00:00Z","git_commit":"abc123"}`, w.Body.String())
}

func TestHealthHandler_ConcurrentChecks(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())
	for i := 0; i < 10; i++ {
		handler.RegisterCheck(NewCheck(string(rune('a'+i)), ping(nil)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			handler.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()
}
