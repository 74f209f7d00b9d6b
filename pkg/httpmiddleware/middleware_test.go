package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID_Generated(t *testing.T) {
	var seen string
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		seen = RequestIDFromContext(c.Request.Context())
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))
	assert.Len(t, seen, 36)
}

func TestRequestID_Reused(t *testing.T) {
	r := newRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	assert.Equal(t, "abc-123", serve(r, req).Header().Get(HeaderRequestID))
}

func TestRequestID_RejectsInvalid(t *testing.T) {
	r := newRouter(RequestID())

	for _, id := range []string{strings.Repeat("x", 129), "bad\x01id"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, id)
		got := serve(r, req).Header().Get(HeaderRequestID)
		assert.NotEqual(t, id, got)
		assert.Len(t, got, 36)
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(InjectLogger(zap.New(core)), Recovery())
	r.GET("/boom", func(*gin.Context) {
		panic("kaboom")
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"Internal server error"}`, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestInjectLogger_TagsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), InjectLogger(zap.New(core)), LogRequests())
	r.GET("/items/:id", func(c *gin.Context) {
		zctx.From(c.Request.Context()).Info("Handling")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/items/7", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	serve(r, req)

	entries := logs.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "req-1", e.ContextMap()["request_id"])
	}
	assert.Equal(t, "/items/:id", entries[1].ContextMap()["route"])
	assert.EqualValues(t, http.StatusNoContent, entries[1].ContextMap()["status"])
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS(CORSConfig{AllowOrigins: []string{"https://shop.example.com"}}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
}

func TestCORS_CredentialsEchoOrigin(t *testing.T) {
	r := newRouter(CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://any.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(r, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://any.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
