package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logapi "github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/ratelimit"
	"github.com/bignyap/tenantstore/server"
	"github.com/bignyap/tenantstore/sysconfig"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(cfg *server.Config) (*gin.Engine, *server.Middleware) {
	gin.SetMode(gin.TestMode)
	if cfg == nil {
		cfg = server.DefaultConfig()
	}
	m := server.NewMiddleware(&logapi.NoopLogger{}, cfg)
	router := gin.New()
	return router, m
}

func TestLoggerMiddlewareSetsTraceID(t *testing.T) {
	router, m := newTestRouter(nil)
	router.Use(m.Logger())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestLoggerMiddlewarePropagatesTraceID(t *testing.T) {
	router, m := newTestRouter(nil)
	router.Use(m.Logger())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get("X-Trace-ID"))
}

func TestAuthHeaderFallback(t *testing.T) {
	router, m := newTestRouter(nil)
	router.Use(m.Auth())
	router.GET("/whoami", func(c *gin.Context) {
		tenantID, userID, role := server.Identity(c)
		c.JSON(http.StatusOK, gin.H{"tenant": tenantID, "user": userID, "role": role})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("X-Role", "editor")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tenant":"acme","user":"alice","role":"editor"}`, w.Body.String())
}

func TestAuthRejectsMissingToken(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.JWTSecret = "test-secret"
	router, m := newTestRouter(cfg)
	router.Use(m.Auth())
	router.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAcceptsSignedToken(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.JWTSecret = "test-secret"
	router, m := newTestRouter(cfg)
	router.Use(m.Auth())
	router.GET("/whoami", func(c *gin.Context) {
		tenantID, userID, role := server.Identity(c)
		c.JSON(http.StatusOK, gin.H{"tenant": tenantID, "user": userID, "role": role})
	})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, server.Claims{
		TenantID: "acme",
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tenant":"acme","user":"alice","role":"admin"}`, w.Body.String())
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.JWTSecret = "test-secret"
	router, m := newTestRouter(cfg)
	router.Use(m.Auth())
	router.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusOK) })

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := sysconfig.Default()
	cfg.RateLimitMaxRequests = 2
	limiter := ratelimit.New(cfg, ratelimit.NewMemoryStore())

	router, m := newTestRouter(nil)
	router.Use(m.RateLimit(limiter))
	router.GET("/op", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/op", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/op", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
