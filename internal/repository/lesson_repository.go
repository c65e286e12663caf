package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// LessonRepository manages persistence for the weekly timetable.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = "id, teacher_id, class_id, day_of_week, period, subject, kind, shared, created_at"

// List returns lessons matching the filter ordered by day, period, class.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error) {
	base := "FROM lessons WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.DayOfWeek > 0 {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if filter.Period > 0 {
		conditions = append(conditions, fmt.Sprintf("period = $%d", len(args)+1))
		args = append(args, filter.Period)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY day_of_week ASC, period ASC, class_id ASC", lessonColumns, base)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListByTeacher returns the teacher's full weekly timetable.
func (r *LessonRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s FROM lessons WHERE teacher_id = $1 ORDER BY day_of_week ASC, period ASC", lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, teacherID); err != nil {
		return nil, fmt.Errorf("list lessons by teacher: %w", err)
	}
	return lessons, nil
}

// Create inserts a new timetable entry.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO lessons (id, teacher_id, class_id, day_of_week, period, subject, kind, shared, created_at)
		VALUES (:id, :teacher_id, :class_id, :day_of_week, :period, :subject, :kind, :shared, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// ReplaceForTeacher swaps a teacher's timetable atomically, used by the
// timetable import.
func (r *LessonRepository) ReplaceForTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string, lessons []models.Lesson) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, "DELETE FROM lessons WHERE teacher_id = $1", teacherID); err != nil {
		return fmt.Errorf("clear teacher lessons: %w", err)
	}
	now := time.Now().UTC()
	const query = `INSERT INTO lessons (id, teacher_id, class_id, day_of_week, period, subject, kind, shared, created_at)
		VALUES (:id, :teacher_id, :class_id, :day_of_week, :period, :subject, :kind, :shared, :created_at)`
	for i := range lessons {
		payload := lessons[i]
		payload.TeacherID = teacherID
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, &payload); err != nil {
			return fmt.Errorf("insert teacher lesson: %w", err)
		}
		lessons[i] = payload
	}
	return nil
}

func (r *LessonRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}
