package dto

import "github.com/noah-isme/sma-coverage-api/internal/models"

// AssignSubstituteRequest resolves one coverage request.
type AssignSubstituteRequest struct {
	SubstituteID string `json:"substitute_id" validate:"required"`
}

// AssignSubstituteResponse reports the committed assignment and the
// cascaded absence state.
type AssignSubstituteResponse struct {
	Assignment models.CoverageAssignment `json:"assignment"`
	Absence    models.AbsenceRecord      `json:"absence"`
}

// CandidateQuery identifies the slot to classify.
type CandidateQuery struct {
	ClassID string `form:"classId" validate:"required"`
	Period  int    `form:"period" validate:"required,min=1"`
	Date    string `form:"date" validate:"required,datetime=2006-01-02"`
	// AbsentTeacherID optionally names the teacher whose slot this is so
	// the classifier can exclude them explicitly.
	AbsentTeacherID string `form:"absentTeacherId"`
}

// SwapQuery identifies the slot to analyze for a class swap.
type SwapQuery struct {
	ClassID string `form:"classId" validate:"required"`
	Period  int    `form:"period" validate:"required,min=1"`
	Date    string `form:"date" validate:"required,datetime=2006-01-02"`
}
