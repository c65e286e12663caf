package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// PoolRepository manages the append-only daily pool ledger.
type PoolRepository struct {
	db *sqlx.DB
}

// NewPoolRepository constructs a PoolRepository.
func NewPoolRepository(db *sqlx.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

func (r *PoolRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert appends a pool entry.
func (r *PoolRepository) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.PoolEntry) error {
	target := r.exec(exec)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pool_entries (id, date, teacher_id, source, period, assignment_id, created_at)
		VALUES (:id, :date, :teacher_id, :source, :period, :assignment_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
		return fmt.Errorf("insert pool entry: %w", err)
	}
	return nil
}

// ListByDate returns every pool entry for the date.
func (r *PoolRepository) ListByDate(ctx context.Context, date time.Time) ([]models.PoolEntry, error) {
	const query = `SELECT id, date, teacher_id, source, period, assignment_id, created_at FROM pool_entries WHERE date = $1 ORDER BY created_at ASC, id ASC`
	var entries []models.PoolEntry
	if err := r.db.SelectContext(ctx, &entries, query, date); err != nil {
		return nil, fmt.Errorf("list pool entries: %w", err)
	}
	return entries, nil
}
