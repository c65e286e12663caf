package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/service"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
	"github.com/noah-isme/sma-coverage-api/pkg/response"
)

// CoverageHandler wires coverage request resolution and slot queries to
// HTTP routes.
type CoverageHandler struct {
	absences     *service.AbsenceService
	distribution *service.DistributionService
}

// NewCoverageHandler constructs a new CoverageHandler.
func NewCoverageHandler(absences *service.AbsenceService, distribution *service.DistributionService) *CoverageHandler {
	return &CoverageHandler{absences: absences, distribution: distribution}
}

// Assign godoc
// @Summary Assign a substitute to a coverage request
// @Description Commits the assignment after re-validating the period lock
// @Tags Coverage
// @Accept json
// @Produce json
// @Param id path string true "Coverage request ID"
// @Param payload body dto.AssignSubstituteRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /coverage/requests/{id}/assign [post]
func (h *CoverageHandler) Assign(c *gin.Context) {
	var req dto.AssignSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	result, err := h.absences.AssignSubstitute(c.Request.Context(), c.Param("id"), req.SubstituteID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CancelRequest godoc
// @Summary Cancel one coverage request
// @Description Cancels the request without touching siblings or the parent absence
// @Tags Coverage
// @Param id path string true "Coverage request ID"
// @Success 204
// @Router /coverage/requests/{id} [delete]
func (h *CoverageHandler) CancelRequest(c *gin.Context) {
	if err := h.absences.CancelRequest(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Candidates godoc
// @Summary Classify substitute candidates for a slot
// @Description Returns the six candidate tiers for (date, class, period)
// @Tags Coverage
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param classId query string true "Class ID"
// @Param period query int true "Period number"
// @Param absentTeacherId query string false "Teacher whose slot this is"
// @Success 200 {object} response.Envelope
// @Router /coverage/candidates [get]
func (h *CoverageHandler) Candidates(c *gin.Context) {
	var query dto.CandidateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid candidate query"))
		return
	}
	candidates, err := h.distribution.CandidatesForSlot(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// Swap godoc
// @Summary Analyze a class-swap alternative for a slot
// @Description Proposes moving the class's last lesson into the vacant period; never auto-applies
// @Tags Coverage
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param classId query string true "Class ID"
// @Param period query int true "Absent period number"
// @Success 200 {object} response.Envelope
// @Router /coverage/swap [get]
func (h *CoverageHandler) Swap(c *gin.Context) {
	var query dto.SwapQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid swap query"))
		return
	}
	proposal, err := h.distribution.AnalyzeSwap(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}
