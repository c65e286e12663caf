package dto

import (
	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// CreateAbsenceRequest files or re-files an absence for a teacher/date.
// Re-submission for the same (teacher, date) updates the record in place
// and fully replaces its coverage requests.
type CreateAbsenceRequest struct {
	TeacherID       string  `json:"teacher_id" validate:"required"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	Kind            string  `json:"kind" validate:"required"`
	AffectedPeriods []int   `json:"affected_periods,omitempty"`
	Reason          string  `json:"reason"`
	EffectiveFrom   *string `json:"effective_from,omitempty"`
	EffectiveTo     *string `json:"effective_to,omitempty"`
}

// AbsenceResponse bundles the stored record with its coverage requests.
type AbsenceResponse struct {
	Absence  models.AbsenceRecord     `json:"absence"`
	Requests []models.CoverageRequest `json:"requests"`
}

// AbsenceQuery filters absence listings.
type AbsenceQuery struct {
	Date      string `form:"date"`
	TeacherID string `form:"teacherId"`
	Status    string `form:"status"`
}
