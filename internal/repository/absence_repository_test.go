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

func newAbsenceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAbsenceRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "date", "kind", "affected_periods", "status", "reason", "effective_from", "effective_to", "created_at", "updated_at"}).
		AddRow("abs-1", "t-1", now, "FULL", []byte(`[1,3,5]`), "OPEN", "flu", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, date, kind, affected_periods, status, reason, effective_from, effective_to, created_at, updated_at FROM absences WHERE id = $1")).
		WithArgs("abs-1").
		WillReturnRows(rows)

	record, err := repo.FindByID(context.Background(), "abs-1")
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceKindFull, record.Kind)
	assert.Equal(t, models.PeriodSet{1, 3, 5}, record.AffectedPeriods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryListBuildsConditions(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	status := models.AbsenceStatusOpen
	mock.ExpectQuery(regexp.QuoteMeta("FROM absences WHERE 1=1 AND teacher_id = $1 AND date = $2 AND status = $3 ORDER BY date DESC, teacher_id ASC")).
		WithArgs("t-1", date, string(status)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.List(context.Background(), models.AbsenceFilter{TeacherID: "t-1", Date: &date, Status: &status})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryUpsertScansStoredID(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	mock.ExpectQuery("INSERT INTO absences").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("abs-existing"))

	record := &models.AbsenceRecord{
		TeacherID:       "t-1",
		Date:            time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Kind:            models.AbsenceKindFull,
		AffectedPeriods: models.PeriodSet{1, 3},
		Status:          models.AbsenceStatusOpen,
	}
	require.NoError(t, repo.Upsert(context.Background(), nil, record))

	assert.Equal(t, "abs-existing", record.ID, "conflict on (teacher, date) returns the stored row's id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	mock.ExpectExec("UPDATE absences SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), nil, "abs-404", models.AbsenceStatusCancelled)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
