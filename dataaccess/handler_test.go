package dataaccess_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bignyap/tenantstore/dataaccess"
	"github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*server.HTTPServer, *dataaccess.Service) {
	t.Helper()

	svc, _ := newService(nil, nil)
	cfg := server.DefaultConfig()
	cfg.Environment = "test"

	srv := server.NewHTTPServer(cfg)
	mw := server.NewMiddleware(&api.NoopLogger{}, cfg)
	srv.Router().Use(mw.Auth())

	handler := dataaccess.NewHandler(svc)
	require.NoError(t, handler.Setup(srv))
	return srv, svc
}

func doRequest(srv *server.HTTPServer, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func identityHeaders(tenantID, userID, role string) map[string]string {
	return map[string]string{
		"X-Tenant-ID": tenantID,
		"X-User-ID":   userID,
		"X-Role":      role,
	}
}

func TestCreateTenantAndUsage(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/v1/tenants",
		map[string]any{"id": "acme"}, identityHeaders("acme", "root", "admin"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(srv, http.MethodGet, "/v1/tenants/acme/usage", nil,
		identityHeaders("acme", "root", "admin"))
	require.Equal(t, http.StatusOK, w.Code)

	var usage map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &usage))
	assert.Zero(t, usage["blob_storage_bytes"])
	assert.Zero(t, usage["records"])
}

func TestCreateTenantConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	headers := identityHeaders("acme", "root", "admin")

	w := doRequest(srv, http.MethodPost, "/v1/tenants", map[string]any{"id": "acme"}, headers)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(srv, http.MethodPost, "/v1/tenants", map[string]any{"id": "acme"}, headers)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateTenantRejectsEmptyPayload(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/v1/tenants", map[string]any{},
		identityHeaders("acme", "root", "admin"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsageUnknownTenant(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/v1/tenants/ghost/usage", nil,
		identityHeaders("ghost", "root", "admin"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScanEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	headers := identityHeaders("acme", "alice", "editor")

	w := doRequest(srv, http.MethodPost, "/v1/tenants", map[string]any{"id": "acme"}, headers)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(srv, http.MethodPost, "/v1/scan",
		map[string]any{"content": "eval(input)", "content_type": "javascript"}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Safe     bool   `json:"safe"`
		Severity string `json:"severity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Safe)
	assert.Equal(t, "critical", result.Severity)
}

func TestAuditEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := identityHeaders("acme", "root", "admin")

	w := doRequest(srv, http.MethodPost, "/v1/tenants", map[string]any{"id": "acme"}, admin)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(srv, http.MethodGet, "/v1/audit?limit=10", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))

	w = doRequest(srv, http.MethodGet, "/v1/audit/stats", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuditForbiddenForViewer(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := identityHeaders("acme", "root", "admin")

	w := doRequest(srv, http.MethodPost, "/v1/tenants", map[string]any{"id": "acme"}, admin)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(srv, http.MethodGet, "/v1/audit", nil,
		identityHeaders("acme", "bob", "viewer"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitAdminRoutes(t *testing.T) {
	srv, svc := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/v1/ratelimit/alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var info struct {
		User        string `json:"user"`
		MaxRequests int    `json:"max_requests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "alice", info.User)
	assert.Equal(t, svc.Limiter.MaxRequests(), info.MaxRequests)

	w = doRequest(srv, http.MethodDelete, "/v1/ratelimit/alice", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMissingIdentityRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/v1/audit", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
