package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AbsenceKind classifies how much of the day an absence covers.
type AbsenceKind string

const (
	AbsenceKindFull           AbsenceKind = "FULL"
	AbsenceKindPartial        AbsenceKind = "PARTIAL"
	AbsenceKindEarlyDeparture AbsenceKind = "EARLY_DEPARTURE"
	AbsenceKindLateArrival    AbsenceKind = "LATE_ARRIVAL"
)

// Valid returns true when the kind is a supported value.
func (k AbsenceKind) Valid() bool {
	switch k {
	case AbsenceKindFull, AbsenceKindPartial, AbsenceKindEarlyDeparture, AbsenceKindLateArrival:
		return true
	default:
		return false
	}
}

// RequiresEffectiveTimes reports whether clock times must accompany the kind.
func (k AbsenceKind) RequiresEffectiveTimes() bool {
	return k == AbsenceKindEarlyDeparture || k == AbsenceKindLateArrival
}

// AbsenceStatus tracks the absence lifecycle.
type AbsenceStatus string

const (
	AbsenceStatusOpen      AbsenceStatus = "OPEN"
	AbsenceStatusCovered   AbsenceStatus = "COVERED"
	AbsenceStatusCancelled AbsenceStatus = "CANCELLED"
)

// AbsenceRecord captures a teacher's declared unavailability for a date.
// One record exists per (teacher, date); re-submission updates in place.
type AbsenceRecord struct {
	ID              string        `db:"id" json:"id"`
	TeacherID       string        `db:"teacher_id" json:"teacher_id"`
	Date            time.Time     `db:"date" json:"date"`
	Kind            AbsenceKind   `db:"kind" json:"kind"`
	AffectedPeriods PeriodSet     `db:"affected_periods" json:"affected_periods"`
	Status          AbsenceStatus `db:"status" json:"status"`
	Reason          string        `db:"reason" json:"reason"`
	EffectiveFrom   *string       `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveTo     *string       `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// PeriodSet stores affected periods as a sorted jsonb array.
type PeriodSet []int

// Contains reports membership.
func (p PeriodSet) Contains(period int) bool {
	for _, candidate := range p {
		if candidate == period {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer for jsonb storage.
func (p PeriodSet) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(p))
}

// Scan implements sql.Scanner for jsonb storage.
func (p *PeriodSet) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	}
	var periods []int
	if err := json.Unmarshal(raw, &periods); err != nil {
		return err
	}
	*p = periods
	return nil
}

// AbsenceFilter scopes absence listing queries.
type AbsenceFilter struct {
	TeacherID string
	Date      *time.Time
	Status    *AbsenceStatus
}
