package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/service"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
	"github.com/noah-isme/sma-coverage-api/pkg/response"
)

// DistributionHandler wires distribution runs to HTTP routes.
type DistributionHandler struct {
	distribution *service.DistributionService
}

// NewDistributionHandler constructs a new DistributionHandler.
func NewDistributionHandler(distribution *service.DistributionService) *DistributionHandler {
	return &DistributionHandler{distribution: distribution}
}

// PlanAbsence godoc
// @Summary Plan coverage for one absence
// @Description Classifies every pending request and proposes the top candidate per slot; commit=true assigns them
// @Tags Distribution
// @Produce json
// @Param id path string true "Absence ID"
// @Param commit query bool false "Commit proposed assignments"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/distribution [post]
func (h *DistributionHandler) PlanAbsence(c *gin.Context) {
	commit := strings.EqualFold(c.Query("commit"), "true")
	grid, err := h.distribution.PlanForAbsence(c.Request.Context(), c.Param("id"), commit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// PlanModes godoc
// @Summary Run a mode-driven bulk distribution
// @Description Evaluates confirmed modes over their classes × periods; async=true enqueues the run
// @Tags Distribution
// @Accept json
// @Produce json
// @Param async query bool false "Run in the background"
// @Param payload body dto.ModeDistributionRequest true "Distribution payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /distribution/modes [post]
func (h *DistributionHandler) PlanModes(c *gin.Context) {
	var req dto.ModeDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid distribution payload"))
		return
	}

	if strings.EqualFold(c.Query("async"), "true") {
		runID, err := h.distribution.EnqueueModeRun(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, dto.DistributionRunResponse{RunID: runID, State: "queued"}, nil)
		return
	}

	grid, err := h.distribution.PlanForModes(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// GetRun godoc
// @Summary Fetch a distribution run result
// @Tags Distribution
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /distribution/runs/{id} [get]
func (h *DistributionHandler) GetRun(c *gin.Context) {
	grid, err := h.distribution.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}
