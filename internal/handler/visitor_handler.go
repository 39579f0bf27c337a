package handler

import (
	"fmt"
	"net/http"
	"time"

	"tourdesk/internal/export"
	"tourdesk/internal/middleware"
	"tourdesk/internal/model"
	"tourdesk/internal/service"
	"tourdesk/pkg/pagination"
	"tourdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VisitorHandler struct {
	visitorService service.VisitorService
	log            *zap.Logger
}

func NewVisitorHandler(visitorService service.VisitorService, log *zap.Logger) *VisitorHandler {
	return &VisitorHandler{visitorService: visitorService, log: log}
}

func (h *VisitorHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	visitors := router.Group("/api/visitors", auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin))
	{
		visitors.GET("", h.List)
		visitors.GET("/export", h.Export)
		visitors.GET("/:id", h.Get)
		visitors.POST("", h.Create)
		visitors.PUT("/:id", h.Update)
		visitors.DELETE("/:id", h.Delete)
		visitors.POST("/:id/check-in", h.CheckIn)
		visitors.POST("/:id/check-out", h.CheckOut)
		visitors.POST("/:id/cancel", h.Cancel)
	}
}

func visitorFilter(c *gin.Context) service.VisitorListFilter {
	p := pagination.Parse(c)
	return service.VisitorListFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Page:   p.Page,
		Limit:  p.Limit,
	}
}

// List pages through the visitor log
// @Summary      List visitors
// @Tags         visitors
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Expected, Checked-in, Checked-out or Cancelled"
// @Param        search  query     string  false  "Matches name, purpose or host"
// @Param        from    query     string  false  "Visit date from (YYYY-MM-DD)"
// @Param        to      query     string  false  "Visit date to (YYYY-MM-DD)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]service.VisitorResponse}
// @Failure      400     {object}  response.Response
// @Router       /api/visitors [get]
func (h *VisitorHandler) List(c *gin.Context) {
	filter := visitorFilter(c)
	items, total, err := h.visitorService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, total, pagination.Params{Page: filter.Page, Limit: filter.Limit}))
}

// Export downloads the visitor log as a workbook
// @Summary      Export visitor log
// @Tags         visitors
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        from  query  string  false  "Visit date from (YYYY-MM-DD)"
// @Param        to    query  string  false  "Visit date to (YYYY-MM-DD)"
// @Success      200
// @Failure      400  {object}  response.Response
// @Router       /api/visitors/export [get]
func (h *VisitorHandler) Export(c *gin.Context) {
	data, err := h.visitorService.Export(c.Request.Context(), visitorFilter(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	name := fmt.Sprintf("visitor-log-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, export.ContentType, data)
}

// Get fetches one visitor
// @Summary      Get visitor
// @Tags         visitors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Visitor ID"
// @Success      200  {object}  response.Response{data=service.VisitorResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/visitors/{id} [get]
func (h *VisitorHandler) Get(c *gin.Context) {
	item, err := h.visitorService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Create logs an expected visitor
// @Summary      Create visitor
// @Tags         visitors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.VisitorForm  true  "Visitor form"
// @Success      201      {object}  response.Response{data=service.VisitorResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/visitors [post]
func (h *VisitorHandler) Create(c *gin.Context) {
	var form service.VisitorForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	item, err := h.visitorService.Create(c.Request.Context(), middleware.Actor(c).ID, form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// Update changes a visitor entry
// @Summary      Update visitor
// @Tags         visitors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Visitor ID"
// @Param        payload  body      service.VisitorForm  true  "Visitor form"
// @Success      200      {object}  response.Response{data=service.VisitorResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/visitors/{id} [put]
func (h *VisitorHandler) Update(c *gin.Context) {
	var form service.VisitorForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	item, err := h.visitorService.Update(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Delete removes a visitor entry
// @Summary      Delete visitor
// @Tags         visitors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Visitor ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/visitors/{id} [delete]
func (h *VisitorHandler) Delete(c *gin.Context) {
	if err := h.visitorService.Delete(c.Request.Context(), middleware.Actor(c).ID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Visitor deleted successfully"}))
}

// CheckIn marks an expected visitor as arrived
// @Summary      Check in visitor
// @Tags         visitors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Visitor ID"
// @Success      200  {object}  response.Response{data=service.VisitorResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/visitors/{id}/check-in [post]
func (h *VisitorHandler) CheckIn(c *gin.Context) {
	item, err := h.visitorService.CheckIn(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// CheckOut marks a checked-in visitor as gone
// @Summary      Check out visitor
// @Tags         visitors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true   "Visitor ID"
// @Param        payload  body      service.VisitorTransitionRequest  false  "Remarks"
// @Success      200      {object}  response.Response{data=service.VisitorResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/visitors/{id}/check-out [post]
func (h *VisitorHandler) CheckOut(c *gin.Context) {
	req := transitionRequest(c)
	item, err := h.visitorService.CheckOut(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), req.Remarks)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Cancel withdraws an expected visit
// @Summary      Cancel visit
// @Tags         visitors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true   "Visitor ID"
// @Param        payload  body      service.VisitorTransitionRequest  false  "Remarks"
// @Success      200      {object}  response.Response{data=service.VisitorResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/visitors/{id}/cancel [post]
func (h *VisitorHandler) Cancel(c *gin.Context) {
	req := transitionRequest(c)
	item, err := h.visitorService.Cancel(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), req.Remarks)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// transitionRequest reads optional remarks; an empty body is allowed.
func transitionRequest(c *gin.Context) service.VisitorTransitionRequest {
	var req service.VisitorTransitionRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	return req
}
