package service

import (
	"time"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// fixtureDate is a Monday, so lessons with DayOfWeek 1 are in scope.
var fixtureDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func lessonAt(teacherID, classID string, period int, kind models.LessonKind, shared bool, subject string) models.Lesson {
	return models.Lesson{
		ID:        teacherID + "-" + classID,
		TeacherID: teacherID,
		ClassID:   classID,
		DayOfWeek: 1,
		Period:    period,
		Subject:   subject,
		Kind:      kind,
		Shared:    shared,
	}
}

func activeStaff(id, name string) models.Staff {
	return models.Staff{ID: id, FullName: name, Active: true}
}

func onCallEntry(teacherID string) models.PoolEntry {
	return models.PoolEntry{
		ID:        "pool-" + teacherID,
		Date:      fixtureDate,
		TeacherID: teacherID,
		Source:    models.PoolSourceOnCall,
	}
}
