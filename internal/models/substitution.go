package models

import "time"

// SubstitutionLog is the durable ledger entry consumed by display and
// export layers; one entry exists per covered slot.
type SubstitutionLog struct {
	ID              string    `db:"id" json:"id"`
	Date            time.Time `db:"date" json:"date"`
	Period          int       `db:"period" json:"period"`
	ClassID         string    `db:"class_id" json:"class_id"`
	AbsentTeacherID string    `db:"absent_teacher_id" json:"absent_teacher_id"`
	SubstituteID    string    `db:"substitute_id" json:"substitute_id"`
	SubstituteName  string    `db:"substitute_name" json:"substitute_name"`
	Kind            string    `db:"kind" json:"kind"`
	Reason          string    `db:"reason" json:"reason"`
	ModeContext     *string   `db:"mode_context" json:"mode_context,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// SubstitutionLogFilter scopes ledger queries.
type SubstitutionLogFilter struct {
	Date      *time.Time
	TeacherID string
	ClassID   string
}
