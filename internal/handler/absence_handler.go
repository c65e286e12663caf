package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/service"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
	"github.com/noah-isme/sma-coverage-api/pkg/response"
)

// AbsenceHandler wires the absence lifecycle to HTTP routes.
type AbsenceHandler struct {
	absences *service.AbsenceService
}

// NewAbsenceHandler constructs a new AbsenceHandler.
func NewAbsenceHandler(absences *service.AbsenceService) *AbsenceHandler {
	return &AbsenceHandler{absences: absences}
}

// Create godoc
// @Summary File or update an absence
// @Description Upserts the absence keyed by (teacher, date) and replaces its coverage requests
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body dto.CreateAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /absences [post]
func (h *AbsenceHandler) Create(c *gin.Context) {
	var req dto.CreateAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	result, err := h.absences.CreateOrUpdate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List absences
// @Tags Absences
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param teacherId query string false "Filter by teacher"
// @Param status query string false "Filter by status (OPEN/COVERED/CANCELLED)"
// @Success 200 {object} response.Envelope
// @Router /absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	var query dto.AbsenceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence query"))
		return
	}
	records, err := h.absences.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Get godoc
// @Summary Get absence detail with coverage requests
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id} [get]
func (h *AbsenceHandler) Get(c *gin.Context) {
	result, err := h.absences.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel an absence
// @Description Cancels the absence and its still-pending coverage requests
// @Tags Absences
// @Param id path string true "Absence ID"
// @Success 204
// @Router /absences/{id} [delete]
func (h *AbsenceHandler) Cancel(c *gin.Context) {
	if err := h.absences.CancelAbsence(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
