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

// SubstitutionRepository manages the durable substitution ledger.
type SubstitutionRepository struct {
	db *sqlx.DB
}

// NewSubstitutionRepository constructs a SubstitutionRepository.
func NewSubstitutionRepository(db *sqlx.DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db}
}

func (r *SubstitutionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert appends a ledger entry.
func (r *SubstitutionRepository) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.SubstitutionLog) error {
	target := r.exec(exec)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO substitution_logs (id, date, period, class_id, absent_teacher_id, substitute_id, substitute_name, kind, reason, mode_context, created_at)
		VALUES (:id, :date, :period, :class_id, :absent_teacher_id, :substitute_id, :substitute_name, :kind, :reason, :mode_context, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
		return fmt.Errorf("insert substitution log: %w", err)
	}
	return nil
}

// List returns ledger entries matching the filter.
func (r *SubstitutionRepository) List(ctx context.Context, filter models.SubstitutionLogFilter) ([]models.SubstitutionLog, error) {
	base := "FROM substitution_logs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("(substitute_id = $%d OR absent_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT id, date, period, class_id, absent_teacher_id, substitute_id, substitute_name, kind, reason, mode_context, created_at %s ORDER BY date DESC, period ASC, class_id ASC", base)
	var entries []models.SubstitutionLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list substitution logs: %w", err)
	}
	return entries, nil
}

// CountsByDate returns per-substitute counts for the date, feeding the
// fairness tie-break.
func (r *SubstitutionRepository) CountsByDate(ctx context.Context, date time.Time) (map[string]int, error) {
	const query = `SELECT substitute_id, COUNT(*) AS total FROM substitution_logs WHERE date = $1 GROUP BY substitute_id`
	rows, err := r.db.QueryxContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("count substitutions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var substituteID string
		var total int
		if err := rows.Scan(&substituteID, &total); err != nil {
			return nil, fmt.Errorf("scan substitution count: %w", err)
		}
		counts[substituteID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate substitution counts: %w", err)
	}
	return counts, nil
}
