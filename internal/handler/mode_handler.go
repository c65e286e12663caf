package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/service"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
	"github.com/noah-isme/sma-coverage-api/pkg/response"
)

// ModeHandler wires mode configuration management to HTTP routes.
type ModeHandler struct {
	modes *service.ModeService
}

// NewModeHandler constructs a new ModeHandler.
func NewModeHandler(modes *service.ModeService) *ModeHandler {
	return &ModeHandler{modes: modes}
}

// List godoc
// @Summary List mode configurations
// @Tags Modes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /modes [get]
func (h *ModeHandler) List(c *gin.Context) {
	modes, err := h.modes.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, modes, nil)
}

// Get godoc
// @Summary Get a mode configuration
// @Tags Modes
// @Produce json
// @Param id path string true "Mode ID"
// @Success 200 {object} response.Envelope
// @Router /modes/{id} [get]
func (h *ModeHandler) Get(c *gin.Context) {
	mode, err := h.modes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mode, nil)
}

// Create godoc
// @Summary Create a mode configuration
// @Tags Modes
// @Accept json
// @Produce json
// @Param payload body dto.SaveModeRequest true "Mode payload"
// @Success 201 {object} response.Envelope
// @Router /modes [post]
func (h *ModeHandler) Create(c *gin.Context) {
	var req dto.SaveModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mode payload"))
		return
	}
	mode, err := h.modes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mode)
}

// Update godoc
// @Summary Update a mode configuration
// @Tags Modes
// @Accept json
// @Produce json
// @Param id path string true "Mode ID"
// @Param payload body dto.SaveModeRequest true "Mode payload"
// @Success 200 {object} response.Envelope
// @Router /modes/{id} [put]
func (h *ModeHandler) Update(c *gin.Context) {
	var req dto.SaveModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mode payload"))
		return
	}
	mode, err := h.modes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mode, nil)
}

// Delete godoc
// @Summary Delete a mode configuration
// @Tags Modes
// @Param id path string true "Mode ID"
// @Success 204
// @Router /modes/{id} [delete]
func (h *ModeHandler) Delete(c *gin.Context) {
	if err := h.modes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
