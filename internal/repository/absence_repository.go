package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// AbsenceRepository manages persistence for absence records.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs an AbsenceRepository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

const absenceColumns = "id, teacher_id, date, kind, affected_periods, status, reason, effective_from, effective_to, created_at, updated_at"

func (r *AbsenceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches an absence by ID.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.AbsenceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM absences WHERE id = $1", absenceColumns)
	var record models.AbsenceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByTeacherAndDate fetches the absence keyed by (teacher, date).
func (r *AbsenceRepository) FindByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.AbsenceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM absences WHERE teacher_id = $1 AND date = $2", absenceColumns)
	var record models.AbsenceRecord
	if err := r.db.GetContext(ctx, &record, query, teacherID, date); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns absences matching the filter.
func (r *AbsenceRepository) List(ctx context.Context, filter models.AbsenceFilter) ([]models.AbsenceRecord, error) {
	base := "FROM absences WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC, teacher_id ASC", absenceColumns, base)
	var records []models.AbsenceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}
	return records, nil
}

// Upsert inserts the absence or, on the (teacher, date) key, replaces its
// mutable fields. The record's ID is populated from the stored row.
func (r *AbsenceRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AbsenceRecord) error {
	target := r.exec(exec)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO absences (id, teacher_id, date, kind, affected_periods, status, reason, effective_from, effective_to, created_at, updated_at)
		VALUES (:id, :teacher_id, :date, :kind, :affected_periods, :status, :reason, :effective_from, :effective_to, :created_at, :updated_at)
		ON CONFLICT (teacher_id, date) DO UPDATE
		SET kind = EXCLUDED.kind,
		    affected_periods = EXCLUDED.affected_periods,
		    status = EXCLUDED.status,
		    reason = EXCLUDED.reason,
		    effective_from = EXCLUDED.effective_from,
		    effective_to = EXCLUDED.effective_to,
		    updated_at = EXCLUDED.updated_at
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, target, query, record)
	if err != nil {
		return fmt.Errorf("upsert absence: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&record.ID); err != nil {
			return fmt.Errorf("scan upserted absence id: %w", err)
		}
	}
	return rows.Err()
}

// UpdateStatus transitions the absence lifecycle status.
func (r *AbsenceRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.AbsenceStatus) error {
	target := r.exec(exec)
	const query = `UPDATE absences SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := target.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update absence status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update absence status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
