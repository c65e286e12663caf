package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

func swapSnapshot(lastPeriodKind models.LessonKind, withGap bool) *models.ScheduleSnapshot {
	lessons := []models.Lesson{
		lessonAt("t-absent", "10A", 3, models.LessonKindActual, false, "Math"),
		lessonAt("t-other", "10A", 4, models.LessonKindActual, false, "English"),
		lessonAt("t-last", "10A", 6, models.LessonKindActual, false, "Sports"),
	}
	if !withGap {
		lessons = append(lessons, lessonAt("t-last", "12C", 3, lastPeriodKind, false, "Counseling"))
	}
	staff := []models.Staff{
		activeStaff("t-absent", "Dina Kurnia"),
		activeStaff("t-other", "Rani Safitri"),
		activeStaff("t-last", "Lukman Hakim"),
	}
	classes := []models.Class{{ID: "10A", Grade: 10}}
	return models.NewScheduleSnapshot(fixtureDate, lessons, staff, classes, []string{"t-absent"}, nil, nil)
}

func TestSwapServiceProposesIndividualSwap(t *testing.T) {
	svc := NewSwapService(nil)
	snap := swapSnapshot(models.LessonKindIndividual, false)

	proposal := svc.Analyze("10A", 3, snap)

	require.True(t, proposal.CanSwap)
	assert.Equal(t, models.SwapTypeIndividual, proposal.SwapType)
	assert.Equal(t, "t-last", proposal.TeacherID)
	assert.Equal(t, "Lukman Hakim", proposal.TeacherName)
	assert.Equal(t, 6, proposal.LastPeriod)
	assert.Equal(t, 5, proposal.EarlyDismissalPeriod)
}

func TestSwapServiceProposesGapSwap(t *testing.T) {
	svc := NewSwapService(nil)
	snap := swapSnapshot("", true)

	proposal := svc.Analyze("10A", 3, snap)

	require.True(t, proposal.CanSwap)
	assert.Equal(t, models.SwapTypeGap, proposal.SwapType)
}

func TestSwapServiceProposesStaySwap(t *testing.T) {
	svc := NewSwapService(nil)
	snap := swapSnapshot(models.LessonKindStay, false)

	proposal := svc.Analyze("10A", 3, snap)

	require.True(t, proposal.CanSwap)
	assert.Equal(t, models.SwapTypeStay, proposal.SwapType)
}

func TestSwapServiceRejectsTeachingTeacher(t *testing.T) {
	svc := NewSwapService(nil)
	snap := swapSnapshot(models.LessonKindActual, false)

	proposal := svc.Analyze("10A", 3, snap)

	assert.False(t, proposal.CanSwap)
	assert.NotEmpty(t, proposal.Reason)
}

func TestSwapServiceRejectsWhenNoLaterPeriod(t *testing.T) {
	svc := NewSwapService(nil)
	snap := swapSnapshot(models.LessonKindIndividual, false)

	proposal := svc.Analyze("10A", 6, snap)

	assert.False(t, proposal.CanSwap)
}

func TestSwapServiceRejectsAbsentLastPeriodTeacher(t *testing.T) {
	svc := NewSwapService(nil)
	lessons := []models.Lesson{
		lessonAt("t-absent", "10A", 3, models.LessonKindActual, false, "Math"),
		lessonAt("t-last", "10A", 6, models.LessonKindActual, false, "Sports"),
	}
	staff := []models.Staff{activeStaff("t-absent", "Dina Kurnia"), activeStaff("t-last", "Lukman Hakim")}
	snap := models.NewScheduleSnapshot(fixtureDate, lessons, staff, nil, []string{"t-absent", "t-last"}, nil, nil)

	proposal := svc.Analyze("10A", 3, snap)

	assert.False(t, proposal.CanSwap)
}

func TestSwapServiceRejectsCommittedLastPeriodTeacher(t *testing.T) {
	svc := NewSwapService(nil)
	snap := swapSnapshot(models.LessonKindIndividual, false)
	snap.Lock(3, "t-last")

	proposal := svc.Analyze("10A", 3, snap)

	assert.False(t, proposal.CanSwap)
}

func TestSwapServiceRejectsClassWithoutLessons(t *testing.T) {
	svc := NewSwapService(nil)
	snap := swapSnapshot(models.LessonKindIndividual, false)

	proposal := svc.Analyze("99Z", 3, snap)

	assert.False(t, proposal.CanSwap)
}
