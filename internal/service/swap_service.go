package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// SwapService analyzes whether a class's own last period of the day can be
// moved earlier to cover an absence, releasing the class early instead of
// pulling in an outside substitute. The result is always a proposal the
// caller must explicitly ratify.
type SwapService struct {
	logger *zap.Logger
}

// NewSwapService constructs the analyzer.
func NewSwapService(logger *zap.Logger) *SwapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapService{logger: logger}
}

// Analyze inspects the class's chronologically last scheduled period and
// what its teacher is doing during the absent period. Pure; never errors.
func (s *SwapService) Analyze(classID string, absentPeriod int, snap *models.ScheduleSnapshot) models.SwapProposal {
	lessons := snap.ClassLessons(classID)
	if len(lessons) == 0 {
		return models.SwapProposal{Reason: "class has no lessons scheduled today"}
	}

	last := lessons[len(lessons)-1]
	if last.Period <= absentPeriod {
		return models.SwapProposal{Reason: fmt.Sprintf("no period later than %d to pull forward", absentPeriod)}
	}
	if last.TeacherID == "" {
		return models.SwapProposal{Reason: "last period is an unfilled gap"}
	}
	if snap.IsAbsent(last.TeacherID) {
		return models.SwapProposal{Reason: "last-period teacher is absent today"}
	}
	if snap.IsCommitted(absentPeriod, last.TeacherID) {
		return models.SwapProposal{Reason: "last-period teacher already committed in the absent period"}
	}

	during := snap.LessonOf(last.TeacherID, absentPeriod)
	var swapType models.SwapType
	switch {
	case during == nil:
		swapType = models.SwapTypeGap
	case during.Kind == models.LessonKindIndividual:
		swapType = models.SwapTypeIndividual
	case during.Kind == models.LessonKindStay:
		swapType = models.SwapTypeStay
	default:
		return models.SwapProposal{Reason: "last-period teacher is teaching during the absent period"}
	}

	name := last.TeacherID
	if staff := snap.StaffByID(last.TeacherID); staff != nil {
		name = staff.FullName
	}

	return models.SwapProposal{
		CanSwap:              true,
		SwapType:             swapType,
		TeacherID:            last.TeacherID,
		TeacherName:          name,
		LastPeriod:           last.Period,
		EarlyDismissalPeriod: last.Period - 1,
		Reason:               fmt.Sprintf("move period-%d teacher to period %d, dismiss class after period %d", last.Period, absentPeriod, last.Period-1),
	}
}
