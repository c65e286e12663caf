package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// CoverageRepository manages coverage requests and their immutable
// assignment records.
type CoverageRepository struct {
	db *sqlx.DB
}

// NewCoverageRepository constructs a CoverageRepository.
func NewCoverageRepository(db *sqlx.DB) *CoverageRepository {
	return &CoverageRepository{db: db}
}

const coverageColumns = "id, absence_id, absent_teacher_id, date, period, class_id, subject, status, assigned_substitute_id, created_at, updated_at"

func (r *CoverageRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindRequestByID fetches one coverage request.
func (r *CoverageRepository) FindRequestByID(ctx context.Context, id string) (*models.CoverageRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM coverage_requests WHERE id = $1", coverageColumns)
	var request models.CoverageRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListByAbsence returns the absence's requests ordered by period.
func (r *CoverageRepository) ListByAbsence(ctx context.Context, absenceID string) ([]models.CoverageRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM coverage_requests WHERE absence_id = $1 ORDER BY period ASC, class_id ASC", coverageColumns)
	var requests []models.CoverageRequest
	if err := r.db.SelectContext(ctx, &requests, query, absenceID); err != nil {
		return nil, fmt.Errorf("list coverage requests: %w", err)
	}
	return requests, nil
}

// ListAssignedByDate returns every request already resolved on the date,
// used to seed period locks when building a snapshot.
func (r *CoverageRepository) ListAssignedByDate(ctx context.Context, date time.Time) ([]models.CoverageRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM coverage_requests WHERE date = $1 AND status = $2 ORDER BY period ASC, class_id ASC", coverageColumns)
	var requests []models.CoverageRequest
	if err := r.db.SelectContext(ctx, &requests, query, date, models.CoverageStatusAssigned); err != nil {
		return nil, fmt.Errorf("list assigned coverage requests: %w", err)
	}
	return requests, nil
}

// ReplaceForAbsence drops the absence's existing requests and inserts the
// freshly derived set. Runs inside the absence upsert transaction.
func (r *CoverageRepository) ReplaceForAbsence(ctx context.Context, exec sqlx.ExtContext, absenceID string, requests []models.CoverageRequest) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, "DELETE FROM coverage_requests WHERE absence_id = $1", absenceID); err != nil {
		return fmt.Errorf("clear coverage requests: %w", err)
	}
	now := time.Now().UTC()
	const query = `INSERT INTO coverage_requests (id, absence_id, absent_teacher_id, date, period, class_id, subject, status, assigned_substitute_id, created_at, updated_at)
		VALUES (:id, :absence_id, :absent_teacher_id, :date, :period, :class_id, :subject, :status, :assigned_substitute_id, :created_at, :updated_at)`
	for i := range requests {
		payload := requests[i]
		payload.AbsenceID = absenceID
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.Status == "" {
			payload.Status = models.CoverageStatusPending
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, &payload); err != nil {
			return fmt.Errorf("insert coverage request: %w", err)
		}
		requests[i] = payload
	}
	return nil
}

// MarkAssigned transitions a pending request to ASSIGNED. Returns
// sql.ErrNoRows when the request was resolved concurrently.
func (r *CoverageRepository) MarkAssigned(ctx context.Context, exec sqlx.ExtContext, requestID, substituteID string) error {
	target := r.exec(exec)
	const query = `UPDATE coverage_requests SET status = $2, assigned_substitute_id = $3, updated_at = $4 WHERE id = $1 AND status = $5`
	result, err := target.ExecContext(ctx, query, requestID, models.CoverageStatusAssigned, substituteID, time.Now().UTC(), models.CoverageStatusPending)
	if err != nil {
		return fmt.Errorf("mark coverage request assigned: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark coverage request assigned: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkCancelled transitions a request to CANCELLED.
func (r *CoverageRepository) MarkCancelled(ctx context.Context, requestID string) error {
	const query = `UPDATE coverage_requests SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, requestID, models.CoverageStatusCancelled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cancel coverage request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel coverage request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CancelPendingByAbsence cancels the absence's still-pending requests.
func (r *CoverageRepository) CancelPendingByAbsence(ctx context.Context, exec sqlx.ExtContext, absenceID string) error {
	target := r.exec(exec)
	const query = `UPDATE coverage_requests SET status = $2, updated_at = $3 WHERE absence_id = $1 AND status = $4`
	if _, err := target.ExecContext(ctx, query, absenceID, models.CoverageStatusCancelled, time.Now().UTC(), models.CoverageStatusPending); err != nil {
		return fmt.Errorf("cancel pending coverage requests: %w", err)
	}
	return nil
}

// InsertAssignment records the immutable assignment audit row.
func (r *CoverageRepository) InsertAssignment(ctx context.Context, exec sqlx.ExtContext, assignment *models.CoverageAssignment) error {
	target := r.exec(exec)
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO coverage_assignments (id, coverage_request_id, substitute_id, date, period, class_id, absent_teacher_id, absence_id, assigned_at)
		VALUES (:id, :coverage_request_id, :substitute_id, :date, :period, :class_id, :absent_teacher_id, :absence_id, :assigned_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, assignment); err != nil {
		return fmt.Errorf("insert coverage assignment: %w", err)
	}
	return nil
}

// HasAssignmentAt reports whether the teacher already covers a slot in the
// exact (date, period). This is the durable side of the period lock.
func (r *CoverageRepository) HasAssignmentAt(ctx context.Context, date time.Time, period int, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM coverage_requests WHERE date = $1 AND period = $2 AND assigned_substitute_id = $3 AND status = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, date, period, teacherID, models.CoverageStatusAssigned); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check period lock: %w", err)
	}
	return true, nil
}
