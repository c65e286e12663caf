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

// ModeRepository manages persistence for mode configurations.
type ModeRepository struct {
	db *sqlx.DB
}

// NewModeRepository constructs a ModeRepository.
func NewModeRepository(db *sqlx.DB) *ModeRepository {
	return &ModeRepository{db: db}
}

const modeColumns = "id, name, linked_event_type, golden_rules, ladder, enabled, created_at, updated_at"

// List returns every mode configuration ordered by name.
func (r *ModeRepository) List(ctx context.Context) ([]models.ModeConfig, error) {
	query := fmt.Sprintf("SELECT %s FROM mode_configs ORDER BY name ASC", modeColumns)
	var modes []models.ModeConfig
	if err := r.db.SelectContext(ctx, &modes, query); err != nil {
		return nil, fmt.Errorf("list mode configs: %w", err)
	}
	return modes, nil
}

// FindByID fetches a mode configuration by ID.
func (r *ModeRepository) FindByID(ctx context.Context, id string) (*models.ModeConfig, error) {
	query := fmt.Sprintf("SELECT %s FROM mode_configs WHERE id = $1", modeColumns)
	var mode models.ModeConfig
	if err := r.db.GetContext(ctx, &mode, query, id); err != nil {
		return nil, err
	}
	return &mode, nil
}

// Insert persists a new mode configuration.
func (r *ModeRepository) Insert(ctx context.Context, mode *models.ModeConfig) error {
	if mode.ID == "" {
		mode.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mode.CreatedAt.IsZero() {
		mode.CreatedAt = now
	}
	mode.UpdatedAt = now

	const query = `INSERT INTO mode_configs (id, name, linked_event_type, golden_rules, ladder, enabled, created_at, updated_at)
		VALUES (:id, :name, :linked_event_type, :golden_rules, :ladder, :enabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mode); err != nil {
		return fmt.Errorf("insert mode config: %w", err)
	}
	return nil
}

// Update replaces the mode configuration's mutable fields.
func (r *ModeRepository) Update(ctx context.Context, mode *models.ModeConfig) error {
	mode.UpdatedAt = time.Now().UTC()
	const query = `UPDATE mode_configs SET name = :name, linked_event_type = :linked_event_type, golden_rules = :golden_rules, ladder = :ladder, enabled = :enabled, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, mode)
	if err != nil {
		return fmt.Errorf("update mode config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update mode config: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a mode configuration.
func (r *ModeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM mode_configs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete mode config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mode config: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
