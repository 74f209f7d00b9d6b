package httpmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{RPS: 1, Burst: 5}))

	for i := range 5 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := serve(r, req)

		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{RPS: 0.01, Burst: 2}))

	// Exhaust the bucket.
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:9999"
		require.Equal(t, http.StatusOK, serve(r, req).Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	w := serve(r, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{RPS: 0.01, Burst: 1}))

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, http.StatusOK, serve(r, req1).Code)

	// Independent bucket.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(r, req2).Code)

	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.RemoteAddr = "10.0.0.1:5678"
	assert.Equal(t, http.StatusTooManyRequests, serve(r, req3).Code)
}

func TestRateLimit_Refill(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{RPS: 10, Burst: 1})
	now := time.Now()

	_, _, ok := rl.allow("k", now)
	require.True(t, ok)

	_, retry, ok := rl.allow("k", now)
	require.False(t, ok)
	assert.InDelta(t, 100*time.Millisecond, retry, float64(5*time.Millisecond))

	_, _, ok = rl.allow("k", now.Add(100*time.Millisecond))
	assert.True(t, ok)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{
		RPS:   0.01,
		Burst: 1,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("Authorization")
		},
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	req1.Header.Set("Authorization", "Bearer a")
	assert.Equal(t, http.StatusOK, serve(r, req1).Code)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("Authorization", "Bearer a")
	assert.Equal(t, http.StatusTooManyRequests, serve(r, req2).Code)

	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.Header.Set("Authorization", "Bearer b")
	assert.Equal(t, http.StatusOK, serve(r, req3).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{RPS: 0.01, Burst: 1}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:4444"
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	// Same forwarded client behind a different proxy address.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "192.168.1.2:5555"
	req2.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, http.StatusTooManyRequests, serve(r, req2).Code)
}

func TestRateLimit_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Now()

	rl.allow("stale", now)
	rl.allow("fresh", now.Add(50*time.Second))
	rl.cleanup(now.Add(time.Minute))

	assert.NotContains(t, rl.visitors, "stale")
	assert.Contains(t, rl.visitors, "fresh")
}

func TestRateLimitWithCleanup_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newRouter(RateLimitWithCleanup(ctx, RateLimitConfig{RPS: 1, Burst: 1, IdleTTL: time.Millisecond}))
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}
