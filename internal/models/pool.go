package models

import "time"

// PoolSource records how a teacher entered the daily pool.
type PoolSource string

const (
	PoolSourceAssignment PoolSource = "ASSIGNMENT"
	PoolSourceOnCall     PoolSource = "ON_CALL"
)

// PoolEntry is an append-only record of who is "in play" on a date,
// used to prevent double-booking and to surface on-call candidates.
type PoolEntry struct {
	ID           string     `db:"id" json:"id"`
	Date         time.Time  `db:"date" json:"date"`
	TeacherID    string     `db:"teacher_id" json:"teacher_id"`
	Source       PoolSource `db:"source" json:"source"`
	Period       *int       `db:"period" json:"period,omitempty"`
	AssignmentID *string    `db:"assignment_id" json:"assignment_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
