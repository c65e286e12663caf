package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// ClassifierService partitions the staff roster into priority tiers for a
// single coverage slot. Classification is a pure function of the slot and
// the schedule snapshot; it never touches storage and never fails.
type ClassifierService struct {
	logger *zap.Logger
}

// NewClassifierService constructs the classifier.
func NewClassifierService(logger *zap.Logger) *ClassifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassifierService{logger: logger}
}

// Classify produces the six candidate tiers for the slot. Teachers in the
// absent set or committed elsewhere in the exact period never appear in
// any tier. A teacher on a genuine non-interruptible lesson who matches
// no tier is excluded entirely.
func (s *ClassifierService) Classify(slot models.SlotContext, snap *models.ScheduleSnapshot) models.ClassifiedCandidates {
	result := models.ClassifiedCandidates{}

	var educatorID string
	if class := snap.ClassByID(slot.ClassID); class != nil && class.EducatorID != nil {
		educatorID = *class.EducatorID
	}

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

		candidate := models.Candidate{
			TeacherID:          staff.ID,
			Name:               staff.FullName,
			DailySubstitutions: snap.DailyCount(staff.ID),
		}
		lesson := snap.LessonOf(staff.ID, slot.Period)

		if staff.ID == educatorID {
			classifyEducator(&candidate, lesson)
			result.Educator = append(result.Educator, candidate)
			continue
		}

		if lesson != nil {
			switch {
			case lesson.Kind == models.LessonKindActual && lesson.Shared:
				candidate.Tier = models.TierShared
				candidate.Priority = models.TierShared.Rank()
				candidate.Reason = "teaching a shared lesson, interruptible"
			case lesson.Kind == models.LessonKindIndividual:
				candidate.Tier = models.TierIndividual
				candidate.Priority = models.TierIndividual.Rank()
				candidate.Reason = "on a one-on-one lesson, interruptible"
			case lesson.Kind == models.LessonKindStay:
				candidate.Tier = models.TierStay
				candidate.Priority = models.TierStay.Rank()
				candidate.Reason = "on stay duty this period"
			default:
				// genuine lesson, not interruptible: never proposed
				continue
			}
		} else {
			switch {
			case snap.TeachesToday(staff.ID):
				candidate.Tier = models.TierAvailable
				candidate.Priority = models.TierAvailable.Rank()
				candidate.Reason = "free this period, on site today"
			case snap.OnCallToday(staff.ID):
				candidate.Tier = models.TierOnCall
				candidate.Priority = models.TierOnCall.Rank()
				candidate.Reason = "called in from the reserve pool"
			default:
				continue
			}
		}

		appendToTier(&result, candidate)
	}

	sortTier(result.Educator)
	sortTier(result.Shared)
	sortTier(result.Individual)
	sortTier(result.Stay)
	sortTier(result.Available)
	sortTier(result.OnCall)

	return result
}

func classifyEducator(candidate *models.Candidate, lesson *models.Lesson) {
	candidate.Tier = models.TierEducator
	switch {
	case lesson == nil:
		candidate.Priority = models.EducatorPriorityFree
		candidate.Reason = "class educator, free this period"
	case lesson.Kind == models.LessonKindIndividual:
		candidate.Priority = models.EducatorPriorityIndividual
		candidate.Reason = "class educator, on a one-on-one lesson"
	case lesson.Kind == models.LessonKindStay:
		candidate.Priority = models.EducatorPriorityStay
		candidate.Reason = "class educator, on stay duty"
	default:
		candidate.Priority = models.EducatorPriorityTeaching
		candidate.Reason = "class educator, teaching elsewhere (manual override only)"
		candidate.ManualOnly = true
	}
}

func appendToTier(result *models.ClassifiedCandidates, candidate models.Candidate) {
	switch candidate.Tier {
	case models.TierShared:
		result.Shared = append(result.Shared, candidate)
	case models.TierIndividual:
		result.Individual = append(result.Individual, candidate)
	case models.TierStay:
		result.Stay = append(result.Stay, candidate)
	case models.TierAvailable:
		result.Available = append(result.Available, candidate)
	case models.TierOnCall:
		result.OnCall = append(result.OnCall, candidate)
	}
}

// sortTier orders a tier by ascending priority, then by the daily
// substitution count for fairness. Stable sort keeps roster insertion
// order as the final tie-break, which makes classification deterministic.
func sortTier(tier []models.Candidate) {
	sort.SliceStable(tier, func(i, j int) bool {
		if tier[i].Priority != tier[j].Priority {
			return tier[i].Priority < tier[j].Priority
		}
		return tier[i].DailySubstitutions < tier[j].DailySubstitutions
	})
}
