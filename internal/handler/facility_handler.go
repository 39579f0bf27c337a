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

type FacilityHandler struct {
	facilityService service.FacilityService
	log             *zap.Logger
}

func NewFacilityHandler(facilityService service.FacilityService, log *zap.Logger) *FacilityHandler {
	return &FacilityHandler{facilityService: facilityService, log: log}
}

func (h *FacilityHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	admin := auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)

	facilities := router.Group("/api/facilities", admin)
	{
		facilities.GET("", h.List)
		facilities.GET("/:id", h.Get)
		facilities.POST("", h.Create)
		facilities.PUT("/:id", h.Update)
		facilities.DELETE("/:id", h.Delete)
		facilities.POST("/:id/image", h.UploadImage)
		facilities.GET("/:id/reservations", h.ListReservations)
		facilities.POST("/:id/reservations", h.Reserve)
	}

	reservations := router.Group("/api/reservations", admin)
	{
		reservations.POST("/:id/cancel", h.CancelReservation)
		reservations.POST("/:id/complete", h.CompleteReservation)
	}
}

// List pages through facilities
// @Summary      List facilities
// @Tags         facilities
// @Produce      json
// @Security     BearerAuth
// @Param        category  query     string  false  "Category filter"
// @Param        status    query     string  false  "Available, Reserved or Under Maintenance"
// @Param        search    query     string  false  "Matches name, plate or driver"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=[]service.FacilityResponse}
// @Router       /api/facilities [get]
func (h *FacilityHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.facilityService.List(c.Request.Context(), service.FacilityListFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, total, p))
}

// Get fetches one facility
// @Summary      Get facility
// @Tags         facilities
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Facility ID"
// @Success      200  {object}  response.Response{data=service.FacilityResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/facilities/{id} [get]
func (h *FacilityHandler) Get(c *gin.Context) {
	item, err := h.facilityService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Create adds a vehicle
// @Summary      Create facility
// @Description  Runs the facility wizard and rejects a plate number already in use
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.FacilityForm  true  "Facility form"
// @Success      201      {object}  response.Response{data=service.FacilityResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/facilities [post]
func (h *FacilityHandler) Create(c *gin.Context) {
	var form service.FacilityForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	item, err := h.facilityService.Create(c.Request.Context(), middleware.Actor(c).ID, form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// Update changes a vehicle
// @Summary      Update facility
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Facility ID"
// @Param        payload  body      service.FacilityForm  true  "Facility form"
// @Success      200      {object}  response.Response{data=service.FacilityResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/facilities/{id} [put]
func (h *FacilityHandler) Update(c *gin.Context) {
	var form service.FacilityForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	item, err := h.facilityService.Update(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Delete removes a vehicle
// @Summary      Delete facility
// @Tags         facilities
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Facility ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/facilities/{id} [delete]
func (h *FacilityHandler) Delete(c *gin.Context) {
	if err := h.facilityService.Delete(c.Request.Context(), middleware.Actor(c).ID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Facility deleted successfully"}))
}

// UploadImage stores a compressed vehicle photo
// @Summary      Upload facility image
// @Tags         facilities
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Facility ID"
// @Param        file  formData  file    true  "JPG or PNG"
// @Success      200   {object}  response.Response{data=service.FacilityResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/facilities/{id}/image [post]
func (h *FacilityHandler) UploadImage(c *gin.Context) {
	name, data, ok := formFileBytes(c)
	if !ok {
		return
	}

	item, err := h.facilityService.UploadImage(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), name, data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Reserve books a vehicle for a time slot
// @Summary      Reserve facility
// @Description  Rejects maintenance vehicles, past dates and slots overlapping another active reservation
// @Tags         facilities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Facility ID"
// @Param        payload  body      service.ReservationForm  true  "Reservation form"
// @Success      201      {object}  response.Response{data=service.ReservationResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/facilities/{id}/reservations [post]
func (h *FacilityHandler) Reserve(c *gin.Context) {
	var form service.ReservationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	item, err := h.facilityService.Reserve(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"), form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// ListReservations returns the bookings of one vehicle
// @Summary      List reservations
// @Tags         facilities
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Facility ID"
// @Success      200  {object}  response.Response{data=[]service.ReservationResponse}
// @Router       /api/facilities/{id}/reservations [get]
func (h *FacilityHandler) ListReservations(c *gin.Context) {
	items, err := h.facilityService.ListReservations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// CancelReservation frees a booked slot
// @Summary      Cancel reservation
// @Tags         facilities
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Reservation ID"
// @Success      200  {object}  response.Response{data=service.ReservationResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/reservations/{id}/cancel [post]
func (h *FacilityHandler) CancelReservation(c *gin.Context) {
	item, err := h.facilityService.CancelReservation(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// CompleteReservation closes a finished trip
// @Summary      Complete reservation
// @Tags         facilities
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Reservation ID"
// @Success      200  {object}  response.Response{data=service.ReservationResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/reservations/{id}/complete [post]
func (h *FacilityHandler) CompleteReservation(c *gin.Context) {
	item, err := h.facilityService.CompleteReservation(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}
