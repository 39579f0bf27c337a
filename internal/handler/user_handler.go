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

type UserHandler struct {
	userService service.UserService
	log         *zap.Logger
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	admin := auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)
	anyone := auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin, model.RoleUser)

	users := router.Group("/api/users")
	{
		users.GET("", admin, h.ListUsers)
		users.GET("/export", admin, h.ExportUsers)
		users.GET("/:id", admin, h.GetUserByID)
		users.POST("", admin, h.CreateUser)
		users.PUT("/:id", anyone, h.UpdateUser)
		users.PATCH("/:id/approval", admin, h.SetApproval)
		users.DELETE("/:id", admin, h.DeleteUser)
		users.POST("/:id/documents/:kind", anyone, h.UploadDocument)
		users.POST("/:id/profile-picture", anyone, h.UploadProfilePicture)
	}
}

func userFilter(c *gin.Context) service.UserListFilter {
	p := pagination.Parse(c)
	return service.UserListFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   p.Page,
		Limit:  p.Limit,
	}
}

// ListUsers returns one page of users
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Pending, Approved or Declined"
// @Param        search  query     string  false  "Matches name, email or contact"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]service.UserResponse}
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	filter := userFilter(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, users, total, pagination.Params{Page: filter.Page, Limit: filter.Limit}))
}

// ExportUsers downloads the filtered user list as a workbook
// @Summary      Export users
// @Tags         users
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        status  query  string  false  "Approval status"
// @Param        search  query  string  false  "Search text"
// @Success      200
// @Router       /api/users/export [get]
func (h *UserHandler) ExportUsers(c *gin.Context) {
	data, err := h.userService.ExportUsers(c.Request.Context(), userFilter(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	name := fmt.Sprintf("users-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, export.ContentType, data)
}

// GetUserByID fetches a single user
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// CreateUser handles POST /api/users from the admin user wizard
// @Summary      Create a new user
// @Description  Runs every user wizard step, checks email uniqueness and stores the account as Pending
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UserForm  true  "User form"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var form service.UserForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), middleware.Actor(c).ID, form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// UpdateUser changes profile fields; users may only update themselves
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.UpdateUserRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// SetApproval approves, declines or resets a user to pending
// @Summary      Change approval status
// @Description  Approval stamps the approving admin; a decline may carry a reason. The user is notified by email.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "User ID"
// @Param        payload  body      service.ApprovalRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/users/{id}/approval [patch]
func (h *UserHandler) SetApproval(c *gin.Context) {
	var req service.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Status is required")
		return
	}

	user, err := h.userService.SetApprovalStatus(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), req.Status, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeleteUser permanently removes a user
// @Summary      Delete user
// @Description  Hard delete without an archive copy. A reason is required and is emailed to the user.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.DeleteUserRequest  true  "Deletion reason"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	var req service.DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please provide a reason for deletion")
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), req.Reason); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "User deleted successfully"}))
}

// UploadDocument stores one identity document
// @Summary      Upload user document
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "User ID"
// @Param        kind  path      string  true  "visa, passport, id_front or id_back"
// @Param        file  formData  file    true  "JPG, PNG or PDF up to 10 MB"
// @Success      200   {object}  response.Response{data=service.UserResponse}
// @Failure      400   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Router       /api/users/{id}/documents/{kind} [post]
func (h *UserHandler) UploadDocument(c *gin.Context) {
	header, f, ok := formFile(c)
	if !ok {
		return
	}
	defer f.Close()

	user, err := h.userService.UploadDocument(c.Request.Context(), middleware.Actor(c), c.Param("id"), c.Param("kind"), header.Filename, header.Size, f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UploadProfilePicture stores a resized profile picture
// @Summary      Upload profile picture
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "User ID"
// @Param        file  formData  file    true  "JPG or PNG"
// @Success      200   {object}  response.Response{data=service.UserResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/users/{id}/profile-picture [post]
func (h *UserHandler) UploadProfilePicture(c *gin.Context) {
	name, data, ok := formFileBytes(c)
	if !ok {
		return
	}

	user, err := h.userService.UploadProfilePicture(c.Request.Context(), middleware.Actor(c), c.Param("id"), name, data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
