package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

func classifierSnapshot() *models.ScheduleSnapshot {
	lessons := []models.Lesson{
		lessonAt("t-absent", "10A", 3, models.LessonKindActual, false, "Math"),
		lessonAt("t-educator", "10A", 1, models.LessonKindActual, false, "Civics"),
		lessonAt("t-shared", "11B", 3, models.LessonKindActual, true, "Biology"),
		lessonAt("t-individual", "12C", 3, models.LessonKindIndividual, false, "Counseling"),
		lessonAt("t-stay", "12C", 3, models.LessonKindStay, false, ""),
		lessonAt("t-free", "11B", 1, models.LessonKindActual, false, "History"),
		lessonAt("t-free2", "12C", 2, models.LessonKindActual, false, "Art"),
		lessonAt("t-busy", "12C", 3, models.LessonKindActual, false, "Physics"),
	}
	educator := activeStaff("t-educator", "Eka Wijaya")
	educator.EducatorClassID = ptr("10A")
	inactive := models.Staff{ID: "t-inactive", FullName: "Nadia Retired", Active: false}
	staff := []models.Staff{
		educator,
		activeStaff("t-shared", "Sari Lestari"),
		activeStaff("t-individual", "Indra Putra"),
		activeStaff("t-stay", "Bayu Santoso"),
		activeStaff("t-free", "Fia Rahma"),
		activeStaff("t-free2", "Gita Pertiwi"),
		activeStaff("t-oncall", "Omar Halim"),
		activeStaff("t-busy", "Budi Hartono"),
		inactive,
		activeStaff("t-absent", "Dina Kurnia"),
		activeStaff("t-ghost", "Rio Nugroho"),
	}
	classes := []models.Class{
		{ID: "10A", Name: "10A", Grade: 10, EducatorID: ptr("t-educator")},
		{ID: "11B", Name: "11B", Grade: 11},
		{ID: "12C", Name: "12C", Grade: 12},
	}
	return models.NewScheduleSnapshot(
		fixtureDate, lessons, staff, classes,
		[]string{"t-absent"},
		[]models.PoolEntry{onCallEntry("t-oncall")},
		map[string]int{"t-free": 2, "t-free2": 0},
	)
}

func classifierSlot() models.SlotContext {
	return models.SlotContext{
		Date:            fixtureDate,
		Day:             1,
		Period:          3,
		ClassID:         "10A",
		Subject:         "Math",
		AbsentTeacherID: "t-absent",
	}
}

func TestClassifierServiceClassifyTiers(t *testing.T) {
	svc := NewClassifierService(nil)
	snap := classifierSnapshot()

	result := svc.Classify(classifierSlot(), snap)

	require.Len(t, result.Educator, 1)
	assert.Equal(t, "t-educator", result.Educator[0].TeacherID)
	assert.Equal(t, models.EducatorPriorityFree, result.Educator[0].Priority)
	assert.False(t, result.Educator[0].ManualOnly)

	require.Len(t, result.Shared, 1)
	assert.Equal(t, "t-shared", result.Shared[0].TeacherID)
	require.Len(t, result.Individual, 1)
	assert.Equal(t, "t-individual", result.Individual[0].TeacherID)
	require.Len(t, result.Stay, 1)
	assert.Equal(t, "t-stay", result.Stay[0].TeacherID)
	require.Len(t, result.OnCall, 1)
	assert.Equal(t, "t-oncall", result.OnCall[0].TeacherID)
}

func TestClassifierServiceExcludesIneligible(t *testing.T) {
	svc := NewClassifierService(nil)
	snap := classifierSnapshot()

	result := svc.Classify(classifierSlot(), snap)

	excluded := map[string]bool{"t-absent": true, "t-busy": true, "t-inactive": true, "t-ghost": true}
	for _, tier := range result.Tiers() {
		for _, candidate := range tier {
			assert.False(t, excluded[candidate.TeacherID], "teacher %s must not be proposed", candidate.TeacherID)
		}
	}
}

func TestClassifierServiceAvailableSortedByDailyCount(t *testing.T) {
	svc := NewClassifierService(nil)
	snap := classifierSnapshot()

	result := svc.Classify(classifierSlot(), snap)

	require.Len(t, result.Available, 2)
	assert.Equal(t, "t-free2", result.Available[0].TeacherID, "fewer substitutions today wins the tie")
	assert.Equal(t, "t-free", result.Available[1].TeacherID)
	assert.Equal(t, 2, result.Available[1].DailySubstitutions)
}

func TestClassifierServiceCommittedTeacherDropsOut(t *testing.T) {
	svc := NewClassifierService(nil)
	snap := classifierSnapshot()
	snap.Lock(3, "t-shared")

	result := svc.Classify(classifierSlot(), snap)

	assert.Empty(t, result.Shared)
}

func TestClassifierServiceEducatorTeachingIsManualOnly(t *testing.T) {
	svc := NewClassifierService(nil)
	educator := activeStaff("t-educator", "Eka Wijaya")
	educator.EducatorClassID = ptr("10A")
	lessons := []models.Lesson{
		lessonAt("t-absent", "10A", 3, models.LessonKindActual, false, "Math"),
		lessonAt("t-educator", "11B", 3, models.LessonKindActual, false, "Civics"),
		lessonAt("t-shared", "12C", 3, models.LessonKindActual, true, "Biology"),
	}
	staff := []models.Staff{educator, activeStaff("t-shared", "Sari Lestari"), activeStaff("t-absent", "Dina Kurnia")}
	classes := []models.Class{{ID: "10A", Grade: 10, EducatorID: ptr("t-educator")}}
	snap := models.NewScheduleSnapshot(fixtureDate, lessons, staff, classes, []string{"t-absent"}, nil, nil)

	result := svc.Classify(classifierSlot(), snap)

	require.Len(t, result.Educator, 1)
	assert.True(t, result.Educator[0].ManualOnly)
	assert.Equal(t, models.EducatorPriorityTeaching, result.Educator[0].Priority)

	best := result.Best(false)
	require.NotNil(t, best)
	assert.Equal(t, "t-shared", best.TeacherID, "manual-only educator must be skipped by auto selection")

	manual := result.Best(true)
	require.NotNil(t, manual)
	assert.Equal(t, "t-educator", manual.TeacherID)
}

func TestClassifierServiceBestFollowsTierOrder(t *testing.T) {
	svc := NewClassifierService(nil)
	snap := classifierSnapshot()

	result := svc.Classify(classifierSlot(), snap)

	best := result.Best(false)
	require.NotNil(t, best)
	assert.Equal(t, "t-educator", best.TeacherID)
	assert.Equal(t, models.TierEducator, best.Tier)
}
