package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/service"
)

func TestMetricsHandlerReadiness(t *testing.T) {
	var redisErr error
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessProbe{
		"postgres": ProbeFunc(func(ctx context.Context) error { return nil }),
		"redis":    ProbeFunc(func(ctx context.Context) error { return redisErr }),
	})
	r := newTestRouter()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)

	w := performRequest(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	redisErr = errors.New("connection refused")
	w = performRequest(r, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"connection refused"`)

	w = performRequest(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsHandlerWithoutService(t *testing.T) {
	h := NewMetricsHandler(nil, nil)
	r := newTestRouter()
	r.GET("/metrics", h.Prometheus)
	r.GET("/ready", h.Ready)

	assert.Equal(t, http.StatusServiceUnavailable, performRequest(r, http.MethodGet, "/metrics", nil).Code)
	assert.Equal(t, http.StatusOK, performRequest(r, http.MethodGet, "/ready", nil).Code)
}
