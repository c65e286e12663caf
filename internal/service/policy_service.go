package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// Base score every candidate starts from before ladder bonuses. A golden
// rule violation forces the score to zero and drops the candidate.
const policyBaseScore = 50

// PolicyService evaluates mode configurations against a slot. Modes are
// plain data (golden rules, ladder entries, conditions) interpreted by a
// single generic evaluator; structural lesson semantics stay with the
// classifier so situational policy remains independently testable.
type PolicyService struct {
	logger *zap.Logger
}

// NewPolicyService constructs the evaluator.
func NewPolicyService(logger *zap.Logger) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{logger: logger}
}

// Evaluate ranks the full roster for the slot under the mode's rules.
// Absent and already-committed teachers are excluded unconditionally.
// Output ordering is deterministic: score descending, then daily
// substitution count ascending, then roster order.
func (s *PolicyService) Evaluate(mode models.ModeConfig, slot models.SlotContext, snap *models.ScheduleSnapshot) []models.RankedCandidate {
	var grade int
	var educatorID string
	if class := snap.ClassByID(slot.ClassID); class != nil {
		grade = class.Grade
		if class.EducatorID != nil {
			educatorID = *class.EducatorID
		}
	}

	ranked := make([]models.RankedCandidate, 0, len(snap.Staff))
	order := make(map[string]int, len(snap.Staff))

	for i := range snap.Staff {
		staff := &snap.Staff[i]
		if !staff.Active {
			continue
		}
		if staff.ID == slot.AbsentTeacherID || snap.IsAbsent(staff.ID) {
			continue
		}
		if snap.IsCommitted(slot.Period, staff.ID) {
			continue
		}

		lesson := snap.LessonOf(staff.ID, slot.Period)
		if violated, why := s.goldenRuleViolation(mode.GoldenRules, staff, lesson, snap); violated {
			s.logger.Debug("candidate excluded by golden rule",
				zap.String("mode", mode.Name),
				zap.String("teacher_id", staff.ID),
				zap.String("rule", why))
			continue
		}

		score := float64(policyBaseScore)
		breakdown := []string{fmt.Sprintf("base %d", policyBaseScore)}

		for _, rule := range mode.Ladder {
			if !conditionMatches(rule.Condition, grade, mode.LinkedEventType) {
				continue
			}
			bonus, note := ladderBonus(rule, staff, lesson, educatorID, slot.Subject, snap)
			if bonus <= 0 {
				continue
			}
			score += float64(bonus)
			breakdown = append(breakdown, note)
		}

		order[staff.ID] = i
		ranked = append(ranked, models.RankedCandidate{
			TeacherID: staff.ID,
			Name:      staff.FullName,
			Score:     score,
			Reason:    summarize(breakdown),
			Breakdown: breakdown,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		ci := snap.DailyCount(ranked[i].TeacherID)
		cj := snap.DailyCount(ranked[j].TeacherID)
		if ci != cj {
			return ci < cj
		}
		return order[ranked[i].TeacherID] < order[ranked[j].TeacherID]
	})

	return ranked
}

func (s *PolicyService) goldenRuleViolation(rules models.GoldenRuleList, staff *models.Staff, lesson *models.Lesson, snap *models.ScheduleSnapshot) (bool, string) {
	for _, rule := range rules {
		switch rule.Type {
		case models.GoldenRuleExcludeExternal:
			if staff.External {
				return true, rule.Type
			}
		case models.GoldenRuleRequireOnSite:
			if !snap.TeachesToday(staff.ID) && !snap.OnCallToday(staff.ID) {
				return true, rule.Type
			}
		case models.GoldenRuleRequireFreePeriod:
			if lesson != nil {
				return true, rule.Type
			}
		case models.GoldenRuleMaxDailySubstitutions:
			if rule.Value > 0 && snap.DailyCount(staff.ID) >= rule.Value {
				return true, rule.Type
			}
		}
	}
	return false, ""
}

func conditionMatches(cond *models.RuleCondition, grade int, event models.EventType) bool {
	if cond == nil {
		return true
	}
	if cond.MinGrade != nil && grade < *cond.MinGrade {
		return false
	}
	if cond.MaxGrade != nil && grade > *cond.MaxGrade {
		return false
	}
	if len(cond.EventTypes) > 0 {
		found := false
		for _, candidate := range cond.EventTypes {
			if candidate == event {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func ladderBonus(rule models.LadderRule, staff *models.Staff, lesson *models.Lesson, educatorID, subject string, snap *models.ScheduleSnapshot) (int, string) {
	switch rule.Type {
	case models.LadderRuleSameSubject:
		if subject != "" && staff.Teaches(subject) {
			return rule.Weight, fmt.Sprintf("same subject +%d", rule.Weight)
		}
	case models.LadderRuleClassEducator:
		if educatorID != "" && staff.ID == educatorID {
			return rule.Weight, fmt.Sprintf("class educator +%d", rule.Weight)
		}
	case models.LadderRuleFewestSubstitutions:
		count := snap.DailyCount(staff.ID)
		bonus := rule.Weight / (1 + count)
		if bonus > 0 {
			return bonus, fmt.Sprintf("fewest substitutions +%d (%d today)", bonus, count)
		}
	case models.LadderRuleFreePeriod:
		if lesson == nil {
			return rule.Weight, fmt.Sprintf("free period +%d", rule.Weight)
		}
	case models.LadderRuleInterruptibleLesson:
		if lesson != nil && lesson.Interruptible() {
			return rule.Weight, fmt.Sprintf("interruptible lesson +%d", rule.Weight)
		}
	}
	return 0, ""
}

func summarize(breakdown []string) string {
	if len(breakdown) <= 1 {
		return "base eligibility only"
	}
	out := breakdown[1]
	for _, part := range breakdown[2:] {
		out += ", " + part
	}
	return out
}
