package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aditpras/civil-registry-api/internal/models"
	"github.com/aditpras/civil-registry-api/internal/service"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
	"github.com/aditpras/civil-registry-api/pkg/response"
)

// IDCardHandler wires HTTP endpoints to the identity-card service.
type IDCardHandler struct {
	service *service.IDCardService
}

// NewIDCardHandler creates a new handler.
func NewIDCardHandler(svc *service.IDCardService) *IDCardHandler {
	return &IDCardHandler{service: svc}
}

// Create godoc
// @Summary Register an identity card
// @Tags IDCards
// @Accept json
// @Produce json
// @Param payload body models.CreateIDCardRequest true "ID card payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /id-cards [post]
func (h *IDCardHandler) Create(c *gin.Context) {
	var req models.CreateIDCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid id card payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.IssuerID = claims.UserID
	}

	card, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, card)
}

// Get godoc
// @Summary Get an identity card
// @Tags IDCards
// @Produce json
// @Param id path string true "ID card ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /id-cards/{id} [get]
func (h *IDCardHandler) Get(c *gin.Context) {
	card, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, card, nil)
}

// GetByNIK godoc
// @Summary Get an identity card by NIK
// @Tags IDCards
// @Produce json
// @Param nik path string true "National identity number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /id-cards/nik/{nik} [get]
func (h *IDCardHandler) GetByNIK(c *gin.Context) {
	card, err := h.service.GetByNIK(c.Request.Context(), c.Param("nik"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, card, nil)
}

// List godoc
// @Summary List identity cards
// @Tags IDCards
// @Produce json
// @Param religion query string false "Filter by religion"
// @Param marital_status query string false "Filter by marital status"
// @Param search query string false "Search by NIK, address or birth place"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /id-cards [get]
func (h *IDCardHandler) List(c *gin.Context) {
	filter := models.IDCardFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("religion"); raw != "" {
		religion := models.Religion(raw)
		filter.Religion = &religion
	}
	if raw := c.Query("marital_status"); raw != "" {
		status := models.MaritalStatus(raw)
		filter.MaritalStatus = &status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	cards, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cards, pagination)
}

// Update godoc
// @Summary Update an identity card
// @Tags IDCards
// @Accept json
// @Produce json
// @Param id path string true "ID card ID"
// @Param payload body models.UpdateIDCardRequest true "ID card payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /id-cards/{id} [put]
func (h *IDCardHandler) Update(c *gin.Context) {
	var req models.UpdateIDCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid id card payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	card, err := h.service.Update(c.Request.Context(), c.Param("id"), actorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, card, nil)
}

// Delete godoc
// @Summary Delete an identity card
// @Tags IDCards
// @Param id path string true "ID card ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /id-cards/{id} [delete]
func (h *IDCardHandler) Delete(c *gin.Context) {
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
