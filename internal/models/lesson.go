package models

import "time"

// LessonKind distinguishes what a timetable slot actually holds.
type LessonKind string

const (
	// LessonKindActual is a genuine class-facing lesson.
	LessonKindActual LessonKind = "ACTUAL"
	// LessonKindIndividual is a one-on-one session that can be interrupted.
	LessonKindIndividual LessonKind = "INDIVIDUAL"
	// LessonKindStay is a reserve/"stay" duty period.
	LessonKindStay LessonKind = "STAY"
	// LessonKindDuty is a non-teaching duty (gate, yard, corridor).
	LessonKindDuty LessonKind = "DUTY"
)

// Valid returns true when the kind is a supported value.
func (k LessonKind) Valid() bool {
	switch k {
	case LessonKindActual, LessonKindIndividual, LessonKindStay, LessonKindDuty:
		return true
	default:
		return false
	}
}

// Lesson is an immutable fact from the weekly timetable. The engine never
// mutates lessons; they are the source of truth for what should happen.
type Lesson struct {
	ID        string     `db:"id" json:"id"`
	TeacherID string     `db:"teacher_id" json:"teacher_id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	DayOfWeek int        `db:"day_of_week" json:"day_of_week"`
	Period    int        `db:"period" json:"period"`
	Subject   string     `db:"subject" json:"subject"`
	Kind      LessonKind `db:"kind" json:"kind"`
	Shared    bool       `db:"shared" json:"shared"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Interruptible reports whether the teacher holding this lesson can be
// pulled away to cover another class without leaving students unattended.
func (l *Lesson) Interruptible() bool {
	if l == nil {
		return true
	}
	switch l.Kind {
	case LessonKindIndividual, LessonKindStay:
		return true
	case LessonKindActual:
		return l.Shared
	default:
		return false
	}
}

// LessonFilter scopes lesson listing queries.
type LessonFilter struct {
	TeacherID string
	ClassID   string
	DayOfWeek int
	Period    int
}
