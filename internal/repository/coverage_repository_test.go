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

func newCoverageRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCoverageRepositoryListByAbsence(t *testing.T) {
	db, mock, cleanup := newCoverageRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "absence_id", "absent_teacher_id", "date", "period", "class_id", "subject", "status", "assigned_substitute_id", "created_at", "updated_at"}).
		AddRow("r-1", "abs-1", "t-1", now, 1, "10A", "Math", "PENDING", nil, now, now).
		AddRow("r-2", "abs-1", "t-1", now, 3, "10A", "Math", "ASSIGNED", "s-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, absence_id, absent_teacher_id, date, period, class_id, subject, status, assigned_substitute_id, created_at, updated_at FROM coverage_requests WHERE absence_id = $1 ORDER BY period ASC, class_id ASC")).
		WithArgs("abs-1").
		WillReturnRows(rows)

	requests, err := repo.ListByAbsence(context.Background(), "abs-1")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, models.CoverageStatusPending, requests[0].Status)
	require.NotNil(t, requests[1].AssignedSubstituteID)
	assert.Equal(t, "s-1", *requests[1].AssignedSubstituteID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryMarkAssigned(t *testing.T) {
	db, mock, cleanup := newCoverageRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)

	mock.ExpectExec("UPDATE coverage_requests SET status").
		WithArgs("r-1", string(models.CoverageStatusAssigned), "s-1", sqlmock.AnyArg(), string(models.CoverageStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkAssigned(context.Background(), nil, "r-1", "s-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryMarkAssignedConcurrentResolution(t *testing.T) {
	db, mock, cleanup := newCoverageRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)

	mock.ExpectExec("UPDATE coverage_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkAssigned(context.Background(), nil, "r-1", "s-1")
	assert.True(t, errors.Is(err, sql.ErrNoRows), "zero rows means the request was resolved concurrently")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryHasAssignmentAt(t *testing.T) {
	db, mock, cleanup := newCoverageRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM coverage_requests WHERE date = $1 AND period = $2 AND assigned_substitute_id = $3 AND status = $4 LIMIT 1")).
		WithArgs(date, 3, "s-1", string(models.CoverageStatusAssigned)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	locked, err := repo.HasAssignmentAt(context.Background(), date, 3, "s-1")
	require.NoError(t, err)
	assert.True(t, locked)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM coverage_requests WHERE date = $1")).
		WillReturnError(sql.ErrNoRows)

	locked, err = repo.HasAssignmentAt(context.Background(), date, 4, "s-1")
	require.NoError(t, err, "no matching row is not an error")
	assert.False(t, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryReplaceForAbsence(t *testing.T) {
	db, mock, cleanup := newCoverageRepoMock(t)
	defer cleanup()
	repo := NewCoverageRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM coverage_requests WHERE absence_id = $1")).
		WithArgs("abs-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO coverage_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	requests := []models.CoverageRequest{{AbsentTeacherID: "t-1", Period: 3, ClassID: "10A", Subject: "Math"}}
	require.NoError(t, repo.ReplaceForAbsence(context.Background(), nil, "abs-1", requests))

	assert.NotEmpty(t, requests[0].ID, "generated IDs are written back")
	assert.Equal(t, "abs-1", requests[0].AbsenceID)
	assert.Equal(t, models.CoverageStatusPending, requests[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
