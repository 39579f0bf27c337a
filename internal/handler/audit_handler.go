package handler

import (
	"net/http"

	"tourdesk/internal/middleware"
	"tourdesk/internal/model"
	"tourdesk/internal/service"
	"tourdesk/pkg/pagination"
	"tourdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditHandler struct {
	auditService service.AuditService
	log          *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	router.GET("/api/audit-logs", auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin), h.GetAuditLogs)
}

// GetAuditLogs pages through admin actions, newest first
// @Summary      Get audit logs
// @Description  Every admin mutation with the acting admin resolved to a name
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action     query     string  false  "Action code, e.g. APPROVE_USER"
// @Param        entity_id  query     string  false  "Affected record id"
// @Param        admin_id   query     string  false  "Acting admin id"
// @Param        since      query     string  false  "Earliest date (YYYY-MM-DD)"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]service.AuditLogResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditQuery{
		Action:   c.Query("action"),
		EntityID: c.Query("entity_id"),
		AdminID:  c.Query("admin_id"),
		Since:    c.Query("since"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, total, p))
}
