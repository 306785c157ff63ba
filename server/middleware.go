package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Middleware struct {
	logger api.Logger
	config *Config
}

func NewMiddleware(logger api.Logger, config *Config) *Middleware {
	return &Middleware{logger: logger, config: config}
}

// sensitiveQueryParams lists query parameter names redacted in logs.
var sensitiveQueryParams = []string{
	"token",
	"api_token",
	"api_key",
	"apikey",
	"password",
	"secret",
	"auth",
	"authorization",
	"access_token",
	"refresh_token",
	"session",
	"session_id",
	"api-key",
	"api-token",
}

func redactSensitiveQueryParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	for key := range values {
		keyLower := strings.ToLower(key)
		for _, sensitive := range sensitiveQueryParams {
			if keyLower == sensitive || strings.Contains(keyLower, sensitive) {
				values.Set(key, "[REDACTED]")
				break
			}
		}
	}

	return values.Encode()
}

func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := context.WithValue(c.Request.Context(), api.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)

		redactedQuery := redactSensitiveQueryParams(c.Request.URL.RawQuery)

		reqLogger := m.logger.WithTraceID(traceID).WithComponent("api").WithFields(
			api.String("method", c.Request.Method),
			api.String("path", c.Request.URL.Path),
			api.String("client_ip", c.ClientIP()),
			api.String("query", redactedQuery),
		)

		c.Set("logger", reqLogger)
		c.Set("trace_id", traceID)

		c.Writer.Header().Set("X-Trace-ID", traceID)
		c.Writer.Header().Set("X-Version", m.config.Version)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		reqLogger = reqLogger.WithFields(
			api.Int("status", status),
			api.Any("latency_ms", float64(latency.Microseconds())/1000.0),
			api.Int("response_size", c.Writer.Size()),
		)

		switch {
		case status >= 500:
			reqLogger.Error(ctx, "Request failed", firstError(c))
		case status >= 400:
			reqLogger.Warn(ctx, "Client error")
		default:
			reqLogger.Info(ctx, "Request completed")
		}
	}
}

func firstError(c *gin.Context) error {
	if len(c.Errors) > 0 {
		return c.Errors[0].Err
	}
	return nil
}

func (m *Middleware) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Trace-ID, X-Version")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (m *Middleware) MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger := getLoggerFromContext(c)
				if logger == nil {
					logger = m.logger
				}
				logger.Error(c.Request.Context(), "Recovered panic", fmt.Errorf("%v", err))
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// Claims is the verified token payload carrying the caller's identity.
type Claims struct {
	TenantID string `json:"tid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Auth resolves the caller's identity. With a JWT secret configured it
// verifies HMAC-signed bearer tokens; without one it trusts identity
// headers, which is only acceptable behind a gateway or in dev.
func (m *Middleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.JWTSecret == "" {
			c.Set("user_id", c.GetHeader("X-User-ID"))
			c.Set("tenant_id", c.GetHeader("X-Tenant-ID"))
			c.Set("role", c.GetHeader("X-Role"))
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(m.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("tenant_id", claims.TenantID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RateLimit applies the sliding-window limiter per authenticated user,
// falling back to the client IP for anonymous calls.
func (m *Middleware) RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetString("user_id")
		if user == "" {
			user = c.ClientIP()
		}

		ok, err := limiter.Check(c.Request.Context(), user)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{Error: "rate limit backend unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded", Kind: "rate_limited"})
			return
		}
		c.Next()
	}
}

func (m *Middleware) Apply(router *gin.Engine) {
	router.Use(m.Logger())
	router.Use(m.CORS())
	router.Use(m.MaxBodySize(m.config.MaxRequestSize))
	router.Use(m.Recovery())
}

// Identity returns the caller identity resolved by the Auth middleware.
func Identity(c *gin.Context) (tenantID, userID, role string) {
	return c.GetString("tenant_id"), c.GetString("user_id"), c.GetString("role")
}

func getLoggerFromContext(c *gin.Context) api.Logger {
	if logger, exists := c.Get("logger"); exists {
		if l, ok := logger.(api.Logger); ok {
			return l
		}
	}
	return nil
}

func getTraceIDFromContext(c *gin.Context) string {
	if val, exists := c.Get("trace_id"); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return c.GetHeader("X-Trace-ID")
}
