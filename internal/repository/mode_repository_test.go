package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

func newModeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestModeRepositoryFindByIDScansRules(t *testing.T) {
	db, mock, cleanup := newModeRepoMock(t)
	defer cleanup()
	repo := NewModeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "linked_event_type", "golden_rules", "ladder", "enabled", "created_at", "updated_at"}).
		AddRow("m-1", "Exam Day", "EXAM",
			[]byte(`[{"type":"exclude_external"},{"type":"max_daily_substitutions","value":2}]`),
			[]byte(`[{"type":"same_subject","weight":20,"condition":{"min_grade":10}}]`),
			true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, linked_event_type, golden_rules, ladder, enabled, created_at, updated_at FROM mode_configs WHERE id = $1")).
		WithArgs("m-1").
		WillReturnRows(rows)

	mode, err := repo.FindByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeExam, mode.LinkedEventType)
	require.Len(t, mode.GoldenRules, 2)
	assert.Equal(t, models.GoldenRuleMaxDailySubstitutions, mode.GoldenRules[1].Type)
	assert.Equal(t, 2, mode.GoldenRules[1].Value)
	require.Len(t, mode.Ladder, 1)
	require.NotNil(t, mode.Ladder[0].Condition)
	require.NotNil(t, mode.Ladder[0].Condition.MinGrade)
	assert.Equal(t, 10, *mode.Ladder[0].Condition.MinGrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModeRepositoryInsertGeneratesID(t *testing.T) {
	db, mock, cleanup := newModeRepoMock(t)
	defer cleanup()
	repo := NewModeRepository(db)

	mock.ExpectExec("INSERT INTO mode_configs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mode := &models.ModeConfig{Name: "Exam Day", LinkedEventType: models.EventTypeExam, Enabled: true}
	require.NoError(t, repo.Insert(context.Background(), mode))
	assert.NotEmpty(t, mode.ID)
	assert.False(t, mode.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModeRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newModeRepoMock(t)
	defer cleanup()
	repo := NewModeRepository(db)

	mock.ExpectExec("UPDATE mode_configs SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.ModeConfig{ID: "m-404", Name: "Gone"})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModeRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newModeRepoMock(t)
	defer cleanup()
	repo := NewModeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM mode_configs WHERE id = $1")).
		WithArgs("m-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "m-404")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
