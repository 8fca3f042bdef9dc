package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/spa-scheduler-api/pkg/config"
)

func limitedRouter(cfg config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(cfg).Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func hit(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":5000"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterRejectsBurstOverflow(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{Enabled: true, RPS: 0.01, Burst: 2})

	require.Equal(t, http.StatusNoContent, hit(r, "10.0.0.1").Code)
	require.Equal(t, http.StatusNoContent, hit(r, "10.0.0.1").Code)

	w := hit(r, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")

	// Other clients keep their own bucket.
	assert.Equal(t, http.StatusNoContent, hit(r, "10.0.0.2").Code)
}

func TestRateLimiterDisabledWithZeroRate(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{RPS: 0})
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusNoContent, hit(r, "10.0.0.1").Code)
	}
}
