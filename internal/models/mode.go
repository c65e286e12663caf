package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// EventType names the school-wide situations a mode can be linked to.
type EventType string

const (
	EventTypeExam      EventType = "EXAM"
	EventTypeTrip      EventType = "TRIP"
	EventTypeRainyDay  EventType = "RAINY_DAY"
	EventTypeEmergency EventType = "EMERGENCY"
)

// Valid returns true when the event type is supported.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeExam, EventTypeTrip, EventTypeRainyDay, EventTypeEmergency:
		return true
	default:
		return false
	}
}

// Golden rule types: hard filters that exclude a candidate outright.
const (
	GoldenRuleExcludeExternal       = "exclude_external"
	GoldenRuleRequireOnSite         = "require_on_site"
	GoldenRuleRequireFreePeriod     = "require_free_period"
	GoldenRuleMaxDailySubstitutions = "max_daily_substitutions"
)

// Ladder rule types: weighted bonuses stacked on the base score.
const (
	LadderRuleSameSubject         = "same_subject"
	LadderRuleClassEducator       = "class_educator"
	LadderRuleFewestSubstitutions = "fewest_substitutions"
	LadderRuleFreePeriod          = "free_period"
	LadderRuleInterruptibleLesson = "interruptible_lesson"
)

// GoldenRule is a hard eligibility filter. A violated golden rule forces
// the candidate's score to zero and removes them from the ranking.
type GoldenRule struct {
	Type  string `json:"type"`
	Value int    `json:"value,omitempty"`
}

// RuleCondition gates whether a ladder rule applies to a slot.
type RuleCondition struct {
	MinGrade   *int        `json:"min_grade,omitempty"`
	MaxGrade   *int        `json:"max_grade,omitempty"`
	EventTypes []EventType `json:"event_types,omitempty"`
}

// LadderRule adds a weighted bonus when its condition matches the slot.
type LadderRule struct {
	Type      string         `json:"type"`
	Weight    int            `json:"weight"`
	Condition *RuleCondition `json:"condition,omitempty"`
}

// ModeConfig is a named operational policy evaluated as plain data by the
// policy interpreter. Modes carry no behaviour of their own.
type ModeConfig struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	LinkedEventType EventType      `db:"linked_event_type" json:"linked_event_type"`
	GoldenRules     GoldenRuleList `db:"golden_rules" json:"golden_rules"`
	Ladder          LadderRuleList `db:"ladder" json:"ladder"`
	Enabled         bool           `db:"enabled" json:"enabled"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// GoldenRuleList marshals golden rules into a jsonb column.
type GoldenRuleList []GoldenRule

// Value implements driver.Valuer.
func (l GoldenRuleList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]GoldenRule(l))
}

// Scan implements sql.Scanner.
func (l *GoldenRuleList) Scan(src interface{}) error {
	return scanJSONList(src, (*[]GoldenRule)(l))
}

// LadderRuleList marshals ladder rules into a jsonb column.
type LadderRuleList []LadderRule

// Value implements driver.Valuer.
func (l LadderRuleList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]LadderRule(l))
}

// Scan implements sql.Scanner.
func (l *LadderRuleList) Scan(src interface{}) error {
	return scanJSONList(src, (*[]LadderRule)(l))
}

func scanJSONList[T any](src interface{}, dst *[]T) error {
	if src == nil {
		*dst = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	*dst = items
	return nil
}
