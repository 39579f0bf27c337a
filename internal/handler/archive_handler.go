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

type ArchiveHandler struct {
	archiveService service.ArchiveService
	log            *zap.Logger
}

func NewArchiveHandler(archiveService service.ArchiveService, log *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{archiveService: archiveService, log: log}
}

func (h *ArchiveHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	admin := auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)

	router.POST("/api/users/:id/archive", admin, h.Archive)

	group := router.Group("/api/archive", admin)
	{
		group.GET("", h.ListArchived)
		group.GET("/:id", h.GetArchived)
		group.POST("/:id/retrieve", h.Retrieve)
	}
}

// Archive moves a user into the archive
// @Summary      Archive user
// @Tags         archive
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.ArchivedUserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id}/archive [post]
func (h *ArchiveHandler) Archive(c *gin.Context) {
	archived, err := h.archiveService.Archive(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, archived))
}

// Retrieve restores an archived user under the original id
// @Summary      Retrieve archived user
// @Tags         archive
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Archive entry ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/archive/{id}/retrieve [post]
func (h *ArchiveHandler) Retrieve(c *gin.Context) {
	user, err := h.archiveService.Retrieve(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ListArchived pages through archived users
// @Summary      List archived users
// @Tags         archive
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Matches name or email"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]service.ArchivedUserResponse}
// @Router       /api/archive [get]
func (h *ArchiveHandler) ListArchived(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.archiveService.ListArchived(c.Request.Context(), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, total, p))
}

// GetArchived fetches one archive entry
// @Summary      Get archived user
// @Tags         archive
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Archive entry ID"
// @Success      200  {object}  response.Response{data=service.ArchivedUserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/archive/{id} [get]
func (h *ArchiveHandler) GetArchived(c *gin.Context) {
	item, err := h.archiveService.GetArchived(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}
