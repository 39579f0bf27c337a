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

type NotificationHandler struct {
	notificationService service.NotificationService
	log                 *zap.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, log: log}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	group := router.Group("/api/notifications", auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin))
	{
		group.GET("", h.List)
		group.POST("/:id/retry", h.Retry)
	}
}

// List shows queued emails and their delivery state
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "PENDING, PUBLISHED, SENT or FAILED"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]service.NotificationResponse}
// @Failure      400     {object}  response.Response
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.notificationService.List(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, total, p))
}

// Retry queues a failed email again
// @Summary      Retry notification
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/notifications/{id}/retry [post]
func (h *NotificationHandler) Retry(c *gin.Context) {
	if err := h.notificationService.Retry(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Notification queued for delivery"}))
}
