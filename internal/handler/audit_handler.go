package handler

import (
	"net/http"

	"riverwatch/internal/authority"
	"riverwatch/internal/middleware"
	"riverwatch/internal/service"
	"riverwatch/pkg/pagination"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

// NewAuditHandler sets up the routing dependencies for audit log endpoints
func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup. Only the
// administrator roles may read the operation log.
func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier) {
	logs := router.Group("/logs",
		middleware.Authenticate(verifier),
		middleware.RequireRole(authority.RoleAdmin, authority.RoleMonitorSupervisor))
	{
		logs.GET("", h.List)
	}
}

// List returns operation log entries with filtering and pagination
// @Summary      List audit logs
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        module  query     string  false  "Module filter"
// @Param        action  query     string  false  "Action filter"
// @Param        status  query     string  false  "success or failure"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	logs, total, err := h.auditService.List(c.Request.Context(), service.ListAuditQuery{
		Module: c.Query("module"),
		Action: c.Query("action"),
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listData(logs, total, params.Page, params.Limit)))
}
