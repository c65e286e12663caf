package models

import "time"

// CoverageStatus tracks the lifecycle of a single coverage request.
type CoverageStatus string

const (
	CoverageStatusPending   CoverageStatus = "PENDING"
	CoverageStatusAssigned  CoverageStatus = "ASSIGNED"
	CoverageStatusCancelled CoverageStatus = "CANCELLED"
)

// CoverageRequest is the need to staff one lesson slot left vacant by an
// absence. Requests are created alongside the absence and fully replaced
// whenever the absence is edited.
type CoverageRequest struct {
	ID                   string         `db:"id" json:"id"`
	AbsenceID            string         `db:"absence_id" json:"absence_id"`
	AbsentTeacherID      string         `db:"absent_teacher_id" json:"absent_teacher_id"`
	Date                 time.Time      `db:"date" json:"date"`
	Period               int            `db:"period" json:"period"`
	ClassID              string         `db:"class_id" json:"class_id"`
	Subject              string         `db:"subject" json:"subject"`
	Status               CoverageStatus `db:"status" json:"status"`
	AssignedSubstituteID *string        `db:"assigned_substitute_id" json:"assigned_substitute_id,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// CoverageAssignment is the immutable audit record created when a request
// is resolved. Cancellations create new state on the request, never here.
type CoverageAssignment struct {
	ID                string    `db:"id" json:"id"`
	CoverageRequestID string    `db:"coverage_request_id" json:"coverage_request_id"`
	SubstituteID      string    `db:"substitute_id" json:"substitute_id"`
	Date              time.Time `db:"date" json:"date"`
	Period            int       `db:"period" json:"period"`
	ClassID           string    `db:"class_id" json:"class_id"`
	AbsentTeacherID   string    `db:"absent_teacher_id" json:"absent_teacher_id"`
	AbsenceID         string    `db:"absence_id" json:"absence_id"`
	AssignedAt        time.Time `db:"assigned_at" json:"assigned_at"`
}
