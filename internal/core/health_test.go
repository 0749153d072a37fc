package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleHealth_NoProbes(t *testing.T) {
	s := testServer(t)

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeHealth(t, w).Status)
}

func TestHandleHealth_AllHealthy(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		ProbeFunc{ProbeName: "database", CheckFunc: func(ctx context.Context) error { return nil }},
		ProbeFunc{ProbeName: "models", CheckFunc: func(ctx context.Context) error { return nil }},
	}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Components["database"].Status)
	assert.Equal(t, "healthy", resp.Components["models"].Status)
}

func TestHandleHealth_OneUnhealthy(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		ProbeFunc{ProbeName: "database", CheckFunc: func(ctx context.Context) error { return errors.New("connection refused") }},
		ProbeFunc{ProbeName: "models", CheckFunc: func(ctx context.Context) error { return nil }},
	}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["database"].Status)
	assert.Contains(t, resp.Components["database"].Message, "connection refused")
	assert.Equal(t, "healthy", resp.Components["models"].Status)
}

func TestHandleHealth_ProbePanicIsContained(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		ProbeFunc{ProbeName: "database", CheckFunc: func(ctx context.Context) error { panic("probe bug") }},
	}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeHealth(t, w)
	assert.Contains(t, resp.Components["database"].Message, "panicked")
}

func TestHandleHealth_SlowProbeTimesOut(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		ProbeFunc{ProbeName: "database", CheckFunc: func(ctx context.Context) error {
			select {
			case <-time.After(10 * time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
	}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decodeHealth(t, w).Components["database"].Status)
}
