package models

import (
	"fmt"
	"time"
)

// CandidateTier is the classifier's ranking bucket. Lower rank wins.
type CandidateTier string

const (
	TierEducator   CandidateTier = "EDUCATOR"
	TierShared     CandidateTier = "SHARED"
	TierIndividual CandidateTier = "INDIVIDUAL"
	TierStay       CandidateTier = "STAY"
	TierAvailable  CandidateTier = "AVAILABLE"
	TierOnCall     CandidateTier = "ON_CALL"
)

// Rank returns the tier's numeric priority (1 = best).
func (t CandidateTier) Rank() int {
	switch t {
	case TierEducator:
		return 1
	case TierShared:
		return 2
	case TierIndividual:
		return 3
	case TierStay:
		return 4
	case TierAvailable:
		return 5
	case TierOnCall:
		return 6
	default:
		return 7
	}
}

// Educator sub-priorities by current activity.
const (
	EducatorPriorityFree       = 1
	EducatorPriorityIndividual = 2
	EducatorPriorityStay       = 3
	EducatorPriorityTeaching   = 4
)

// Candidate is one staff member proposed for a coverage slot.
type Candidate struct {
	TeacherID string        `json:"teacher_id"`
	Name      string        `json:"name"`
	Tier      CandidateTier `json:"tier"`
	Priority  int           `json:"priority"`
	Reason    string        `json:"reason"`
	// ManualOnly marks candidates that may only be committed by an
	// explicit override (educator pulled out of a real lesson).
	ManualOnly bool `json:"manual_only,omitempty"`
	// DailySubstitutions is the teacher's substitution count for the date,
	// carried for fairness tie-breaking.
	DailySubstitutions int `json:"daily_substitutions"`
}

// ClassifiedCandidates holds the six ordered tiers for a slot.
type ClassifiedCandidates struct {
	Educator   []Candidate `json:"educator"`
	Shared     []Candidate `json:"shared"`
	Individual []Candidate `json:"individual"`
	Stay       []Candidate `json:"stay"`
	Available  []Candidate `json:"available"`
	OnCall     []Candidate `json:"on_call"`
}

// Tiers returns the tier slices in priority order.
func (c *ClassifiedCandidates) Tiers() [][]Candidate {
	return [][]Candidate{c.Educator, c.Shared, c.Individual, c.Stay, c.Available, c.OnCall}
}

// Best returns the top-priority committable candidate, or nil when the
// slot has no eligible candidate.
func (c *ClassifiedCandidates) Best(allowManual bool) *Candidate {
	for _, tier := range c.Tiers() {
		for i := range tier {
			if tier[i].ManualOnly && !allowManual {
				continue
			}
			return &tier[i]
		}
	}
	return nil
}

// Empty reports whether no tier holds any candidate.
func (c *ClassifiedCandidates) Empty() bool {
	for _, tier := range c.Tiers() {
		if len(tier) > 0 {
			return false
		}
	}
	return true
}

// RankedCandidate is the uniform ranking shape shared by policy-driven
// and classifier-driven distribution.
type RankedCandidate struct {
	TeacherID string   `json:"teacher_id"`
	Name      string   `json:"name"`
	Score     float64  `json:"score"`
	Reason    string   `json:"reason"`
	Breakdown []string `json:"breakdown,omitempty"`
}

// SlotKey identifies one coverage slot with a proper composite key.
type SlotKey struct {
	Date    time.Time `json:"date"`
	ClassID string    `json:"class_id"`
	Period  int       `json:"period"`
}

// String renders a stable human-readable form for logs.
func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/p%d", k.Date.Format("2006-01-02"), k.ClassID, k.Period)
}

// SlotDecision is one ranked decision in a distribution grid. A slot with
// no eligible candidate is recorded explicitly, never dropped.
type SlotDecision struct {
	Slot            SlotKey          `json:"slot"`
	Subject         string           `json:"subject"`
	AbsentTeacherID string           `json:"absent_teacher_id,omitempty"`
	Covered         bool             `json:"covered"`
	Candidate       *RankedCandidate `json:"candidate,omitempty"`
	ModeContext     string           `json:"mode_context,omitempty"`
}

// DistributionGrid aggregates the decisions of one run.
type DistributionGrid struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Decisions   []SlotDecision `json:"decisions"`
	Uncovered   int            `json:"uncovered"`
}

// SwapType describes what the last-period teacher is doing during the
// absent period, which determines whether a class swap is possible.
type SwapType string

const (
	SwapTypeGap        SwapType = "gap"
	SwapTypeIndividual SwapType = "individual"
	SwapTypeStay       SwapType = "stay"
)

// SwapProposal offers reshuffling a class's own timetable instead of
// pulling in an outside substitute. It is a proposal the caller must
// explicitly ratify, never auto-applied.
type SwapProposal struct {
	CanSwap              bool     `json:"can_swap"`
	SwapType             SwapType `json:"swap_type,omitempty"`
	TeacherID            string   `json:"teacher_id,omitempty"`
	TeacherName          string   `json:"teacher_name,omitempty"`
	LastPeriod           int      `json:"last_period,omitempty"`
	EarlyDismissalPeriod int      `json:"early_dismissal_period,omitempty"`
	Reason               string   `json:"reason"`
}
