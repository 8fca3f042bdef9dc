package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/spa-scheduler-api/internal/scheduling"
	"github.com/noah-isme/spa-scheduler-api/internal/service"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
	"github.com/noah-isme/spa-scheduler-api/pkg/config"
)

func TestAvailabilityPolicy(t *testing.T) {
	policy, err := availabilityPolicy(config.SchedulingConfig{DefaultHoursStart: "09:30", DefaultHoursEnd: "18:00"})
	require.NoError(t, err)
	assert.Equal(t, clock.New(9, 30), policy.DefaultStart)
	assert.Equal(t, clock.New(18, 0), policy.DefaultEnd)

	_, err = availabilityPolicy(config.SchedulingConfig{DefaultHoursStart: "17:00", DefaultHoursEnd: "10:00"})
	assert.Error(t, err)

	_, err = availabilityPolicy(config.SchedulingConfig{DefaultHoursStart: "ten", DefaultHoursEnd: "17:00"})
	assert.Error(t, err)
}

func TestNewLocker(t *testing.T) {
	locker, err := newLocker(config.SchedulingConfig{LockBackend: config.LockBackendMemory}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &scheduling.MemoryLocker{}, locker)

	_, err = newLocker(config.SchedulingConfig{LockBackend: config.LockBackendRedis}, nil, zap.NewNop())
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker, err = newLocker(config.SchedulingConfig{LockBackend: config.LockBackendRedis}, client, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &scheduling.RedisLocker{}, locker)
}

func TestRouterServesHealthEndpointsAndRoutes(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	services := &appServices{
		assignments:  service.NewAssignmentService(nil, nil, nil, nil, nil, nil, nil),
		availability: service.NewAvailabilityService(nil, nil, nil, nil),
		roster:       service.NewRosterService(nil, nil, nil, nil),
	}
	r := newRouter(cfg, zap.NewNop(), service.NewMetricsService(), nil, services)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	routes := map[string]bool{}
	for _, route := range r.Routes() {
		routes[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/bookings/:id/candidates",
		"POST /api/v1/bookings/:id/assignment",
		"POST /api/v1/bookings/:id/cancel",
		"GET /api/v1/availability",
		"POST /api/v1/availability",
		"POST /api/v1/availability/review",
		"POST /api/v1/shifts",
		"GET /api/v1/roster",
		"POST /api/v1/admin/index/rebuild",
		"GET /metrics",
		"GET /ready",
	} {
		assert.True(t, routes[want], want)
	}
	assert.False(t, routes["GET /docs/*any"])
}
