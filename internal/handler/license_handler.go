package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aditpras/civil-registry-api/internal/models"
	"github.com/aditpras/civil-registry-api/internal/service"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
	"github.com/aditpras/civil-registry-api/pkg/response"
)

// LicenseHandler wires HTTP endpoints to the license service.
type LicenseHandler struct {
	service *service.LicenseService
	exports *service.ExportService
}

// NewLicenseHandler creates a new handler.
func NewLicenseHandler(svc *service.LicenseService, exports *service.ExportService) *LicenseHandler {
	return &LicenseHandler{service: svc, exports: exports}
}

// Issue godoc
// @Summary Issue a driving license
// @Description Issue a new license; the license number is generated server-side
// @Tags Licenses
// @Accept json
// @Produce json
// @Param payload body models.IssueLicenseRequest true "License payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /licenses [post]
func (h *LicenseHandler) Issue(c *gin.Context) {
	var req models.IssueLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid license payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.IssuerID = claims.UserID
	}

	license, err := h.service.Issue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, license)
}

// Get godoc
// @Summary Get a license
// @Tags Licenses
// @Produce json
// @Param id path string true "License ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /licenses/{id} [get]
func (h *LicenseHandler) Get(c *gin.Context) {
	license, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, license, nil)
}

// List godoc
// @Summary List licenses
// @Tags Licenses
// @Produce json
// @Param class query string false "Filter by class"
// @Param search query string false "Search by number, NIK or name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /licenses [get]
func (h *LicenseHandler) List(c *gin.Context) {
	filter := models.LicenseFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("class"); raw != "" {
		class := models.LicenseClass(raw)
		filter.Class = &class
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	licenses, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, licenses, pagination)
}

// Update godoc
// @Summary Update a license
// @Description Update license data; the license number never changes
// @Tags Licenses
// @Accept json
// @Produce json
// @Param id path string true "License ID"
// @Param payload body models.UpdateLicenseRequest true "License payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /licenses/{id} [put]
func (h *LicenseHandler) Update(c *gin.Context) {
	var req models.UpdateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid license payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	license, err := h.service.Update(c.Request.Context(), c.Param("id"), actorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, license, nil)
}

// Delete godoc
// @Summary Delete a license
// @Tags Licenses
// @Param id path string true "License ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /licenses/{id} [delete]
func (h *LicenseHandler) Delete(c *gin.Context) {
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

// Decode godoc
// @Summary Decode a license number
// @Description Break a 16-digit license number into its components
// @Tags Licenses
// @Produce json
// @Param number path string true "License number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /licenses/decode/{number} [get]
func (h *LicenseHandler) Decode(c *gin.Context) {
	breakdown, err := h.service.DecodeNumber(c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, breakdown, nil)
}

// Export godoc
// @Summary Export a license card
// @Description Render a printable PDF card and return a signed download URL
// @Tags Licenses
// @Produce json
// @Param id path string true "License ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /licenses/{id}/export [post]
func (h *LicenseHandler) Export(c *gin.Context) {
	result, err := h.exports.GenerateCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download an exported card
// @Description Stream a previously exported PDF using its signed token
// @Tags Licenses
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *LicenseHandler) Download(c *gin.Context) {
	file, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="license-card.pdf"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
