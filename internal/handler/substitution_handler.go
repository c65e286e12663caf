package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/service"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
	"github.com/noah-isme/sma-coverage-api/pkg/response"
)

// SubstitutionHandler exposes the substitution ledger and its exports.
type SubstitutionHandler struct {
	logs    *service.SubstitutionService
	exports *service.ExportService
}

// NewSubstitutionHandler constructs a new SubstitutionHandler.
func NewSubstitutionHandler(logs *service.SubstitutionService, exports *service.ExportService) *SubstitutionHandler {
	return &SubstitutionHandler{logs: logs, exports: exports}
}

// List godoc
// @Summary List substitution ledger entries
// @Tags Substitutions
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param teacherId query string false "Filter by substitute or absent teacher"
// @Param classId query string false "Filter by class"
// @Success 200 {object} response.Envelope
// @Router /substitutions [get]
func (h *SubstitutionHandler) List(c *gin.Context) {
	entries, err := h.logs.List(c.Request.Context(), c.Query("date"), c.Query("teacherId"), c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export the substitution ledger
// @Description Renders the ledger for one date as CSV or PDF and returns a signed download URL
// @Tags Substitutions
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string true "Format (csv/pdf)"
// @Success 200 {object} response.Envelope
// @Router /substitutions/export [get]
func (h *SubstitutionHandler) Export(c *gin.Context) {
	query := dto.ExportQuery{
		Date:   c.Query("date"),
		Format: c.Query("format"),
	}
	result, err := h.exports.Generate(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Substitutions
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /exports/{token} [get]
func (h *SubstitutionHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.exports.ParseToken(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid or expired download token"))
		return
	}
	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file not found"))
		return
	}
	defer file.Close()

	filename := filepath.Base(relPath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.File(file.Name())
}
