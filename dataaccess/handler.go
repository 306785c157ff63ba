package dataaccess

import (
	"strconv"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/scanner"
	"github.com/bignyap/tenantstore/server"
	"github.com/bignyap/tenantstore/tenant"
	"github.com/gin-gonic/gin"
)

// Handler exposes the administrative surface of the data access layer:
// tenant provisioning, usage and audit inspection, content scanning and
// rate limit management. Data plane access stays programmatic through
// the Service.
type Handler struct {
	svc *Service
	rw  *server.ResponseWriter
}

var _ server.Handler = (*Handler)(nil)

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Setup(srv server.Server) error {
	h.rw = srv.GetResponseWriter()

	v1 := srv.Router().Group("/v1")
	v1.POST("/tenants", h.createTenant)
	v1.GET("/tenants/:id/usage", h.tenantUsage)
	v1.GET("/audit", h.queryAudit)
	v1.GET("/audit/stats", h.auditStats)
	v1.POST("/scan", h.scanContent)
	v1.GET("/ratelimit/:user", h.rateLimitInfo)
	v1.DELETE("/ratelimit/:user", h.rateLimitReset)
	return nil
}

func (h *Handler) Shutdown() error {
	return h.svc.Shutdown()
}

// authorize issues the caller's capability object for the tenant the
// auth middleware resolved. Verified roles bypass the role resolver.
func (h *Handler) authorize(c *gin.Context) (*tenant.TenantContext, error) {
	tenantID, userID, role := server.Identity(c)
	if tenantID == "" {
		return nil, apperror.Validation("missing tenant identity", nil)
	}

	ctx := c.Request.Context()
	if role != "" {
		return h.svc.AuthorizeRole(ctx, tenantID, userID, tenant.ParseRole(role))
	}
	return h.svc.Authorize(ctx, tenantID, userID)
}

type createTenantRequest struct {
	ID    string             `json:"id" binding:"required"`
	Quota tenant.QuotaConfig `json:"quota"`
}

func (h *Handler) createTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rw.Error(c, apperror.Validation("invalid tenant payload", err))
		return
	}

	t, err := h.svc.Provision(c.Request.Context(), req.ID, req.Quota)
	if err != nil {
		h.rw.Error(c, err)
		return
	}
	h.rw.Created(c, t)
}

func (h *Handler) tenantUsage(c *gin.Context) {
	tenantID := c.Param("id")
	_, userID, role := server.Identity(c)

	var err error
	if role != "" {
		_, err = h.svc.AuthorizeRole(c.Request.Context(), tenantID, userID, tenant.ParseRole(role))
	} else {
		_, err = h.svc.Authorize(c.Request.Context(), tenantID, userID)
	}
	if err != nil {
		h.rw.Error(c, err)
		return
	}

	usage, err := h.svc.Usage(c.Request.Context(), tenantID)
	if err != nil {
		h.rw.Error(c, err)
		return
	}
	h.rw.Success(c, usage)
}

func (h *Handler) queryAudit(c *gin.Context) {
	tctx, err := h.authorize(c)
	if err != nil {
		h.rw.Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.svc.Audits.Query(c.Request.Context(), tctx, limit)
	if err != nil {
		h.rw.Error(c, err)
		return
	}
	h.rw.Success(c, entries)
}

func (h *Handler) auditStats(c *gin.Context) {
	tctx, err := h.authorize(c)
	if err != nil {
		h.rw.Error(c, err)
		return
	}

	stats, err := h.svc.Audits.StatsFor(c.Request.Context(), tctx)
	if err != nil {
		h.rw.Error(c, err)
		return
	}
	h.rw.Success(c, stats)
}

type scanRequest struct {
	Content     string `json:"content" binding:"required"`
	ContentType string `json:"content_type"`
}

func (h *Handler) scanContent(c *gin.Context) {
	tctx, err := h.authorize(c)
	if err != nil {
		h.rw.Error(c, err)
		return
	}

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rw.Error(c, apperror.Validation("invalid scan payload", err))
		return
	}

	result := h.svc.ScanContent(c.Request.Context(), tctx, req.Content, scanner.ContentType(req.ContentType))
	h.rw.Success(c, result)
}

func (h *Handler) rateLimitInfo(c *gin.Context) {
	h.rw.Success(c, gin.H{
		"user":         c.Param("user"),
		"window_ms":    h.svc.Limiter.Window().Milliseconds(),
		"max_requests": h.svc.Limiter.MaxRequests(),
	})
}

func (h *Handler) rateLimitReset(c *gin.Context) {
	if err := h.svc.Limiter.Clear(c.Request.Context(), c.Param("user")); err != nil {
		h.rw.Error(c, err)
		return
	}
	h.rw.NoContent(c)
}
