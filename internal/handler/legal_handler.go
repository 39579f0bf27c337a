package handler

import (
	"context"
	"io"
	"net/http"

	"tourdesk/internal/middleware"
	"tourdesk/internal/model"
	"tourdesk/internal/service"
	"tourdesk/pkg/pagination"
	"tourdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// recordService is the shape shared by the case, contract and compliance services
type recordService[F any, R any] interface {
	Create(ctx context.Context, adminID string, form F) (*R, error)
	Update(ctx context.Context, adminID, id string, form F) (*R, error)
	Delete(ctx context.Context, adminID, id string) error
	Get(ctx context.Context, id string) (*R, error)
	List(ctx context.Context, filter service.LegalFilter) ([]R, int64, error)
	UploadDocument(ctx context.Context, adminID, id, filename string, size int64, r io.Reader) (*R, error)
}

// RecordHandler serves one legal record collection
type RecordHandler[F any, R any] struct {
	path    string
	label   string
	service recordService[F, R]
	log     *zap.Logger
}

func NewCaseHandler(s service.CaseService, log *zap.Logger) *RecordHandler[service.CaseForm, service.CaseResponse] {
	return &RecordHandler[service.CaseForm, service.CaseResponse]{path: "/api/cases", label: "Case", service: s, log: log}
}

func NewContractHandler(s service.ContractService, log *zap.Logger) *RecordHandler[service.ContractForm, service.ContractResponse] {
	return &RecordHandler[service.ContractForm, service.ContractResponse]{path: "/api/contracts", label: "Contract", service: s, log: log}
}

func NewComplianceHandler(s service.ComplianceService, log *zap.Logger) *RecordHandler[service.ComplianceForm, service.ComplianceResponse] {
	return &RecordHandler[service.ComplianceForm, service.ComplianceResponse]{path: "/api/compliance", label: "Compliance record", service: s, log: log}
}

func (h *RecordHandler[F, R]) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	group := router.Group(h.path, auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin))
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
		group.POST("/:id/document", h.UploadDocument)
	}
}

// List pages through records
// @Summary      List legal records
// @Tags         legal
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true   "cases, contracts or compliance"
// @Param        status  query     string  false  "Status filter"
// @Param        search  query     string  false  "Matches number or title"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]object}
// @Router       /api/{entity} [get]
func (h *RecordHandler[F, R]) List(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.service.List(c.Request.Context(), service.LegalFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, total, p))
}

// Get fetches one record
// @Summary      Get legal record
// @Tags         legal
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true  "cases, contracts or compliance"
// @Param        id      path      string  true  "Record ID"
// @Success      200     {object}  response.Response{data=object}
// @Failure      404     {object}  response.Response
// @Router       /api/{entity}/{id} [get]
func (h *RecordHandler[F, R]) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Create validates every wizard step and stores a record
// @Summary      Create legal record
// @Tags         legal
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entity   path      string  true  "cases, contracts or compliance"
// @Param        payload  body      object  true  "Wizard form"
// @Success      201      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/{entity} [post]
func (h *RecordHandler[F, R]) Create(c *gin.Context) {
	var form F
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	item, err := h.service.Create(c.Request.Context(), middleware.Actor(c).ID, form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// Update replaces a record's fields
// @Summary      Update legal record
// @Tags         legal
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entity   path      string  true  "cases, contracts or compliance"
// @Param        id       path      string  true  "Record ID"
// @Param        payload  body      object  true  "Wizard form"
// @Success      200      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/{entity}/{id} [put]
func (h *RecordHandler[F, R]) Update(c *gin.Context) {
	var form F
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	item, err := h.service.Update(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Delete removes a record and its document
// @Summary      Delete legal record
// @Tags         legal
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true  "cases, contracts or compliance"
// @Param        id      path      string  true  "Record ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/{entity}/{id} [delete]
func (h *RecordHandler[F, R]) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.Actor(c).ID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": h.label + " deleted successfully"}))
}

// UploadDocument attaches a file to a record
// @Summary      Upload legal document
// @Tags         legal
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true  "cases, contracts or compliance"
// @Param        id      path      string  true  "Record ID"
// @Param        file    formData  file    true  "JPG, PNG or PDF up to 10 MB"
// @Success      200     {object}  response.Response{data=object}
// @Failure      400     {object}  response.Response
// @Router       /api/{entity}/{id}/document [post]
func (h *RecordHandler[F, R]) UploadDocument(c *gin.Context) {
	header, f, ok := formFile(c)
	if !ok {
		return
	}
	defer f.Close()

	item, err := h.service.UploadDocument(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), header.Filename, header.Size, f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}
