package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func readiness(t *testing.T, h *HealthChecker) (int, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	return rec.Code, status
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(nil, pinger{}, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	h.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alive"`)
}

func TestReadinessHandler(t *testing.T) {
	pool := workerpool.New(&workerpool.Config{Name: "health-test", Workers: 1, QueueSize: 4, Logger: zap.NewNop()})
	t.Cleanup(func() { pool.Stop(time.Second) })

	t.Run("ready", func(t *testing.T) {
		code, status := readiness(t, NewHealthChecker(pinger{}, pinger{}, pool, zap.NewNop()))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, "healthy", status.Checks["storage"])
		assert.Equal(t, "healthy", status.Checks["fetch_pool"])
	})

	t.Run("no cache tier", func(t *testing.T) {
		code, status := readiness(t, NewHealthChecker(nil, pinger{}, nil, zap.NewNop()))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "disabled", status.Checks["cache"])
	})

	t.Run("storage down", func(t *testing.T) {
		code, status := readiness(t, NewHealthChecker(pinger{}, pinger{err: fmt.Errorf("connection refused")}, nil, zap.NewNop()))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not_ready", status.Status)
		assert.Contains(t, status.Checks["storage"], "connection refused")
	})
}
