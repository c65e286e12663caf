package service

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/models"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type absenceStoreStub struct {
	byID     map[string]*models.AbsenceRecord
	byKey    map[string]*models.AbsenceRecord
	upserted *models.AbsenceRecord
	statuses map[string]models.AbsenceStatus
}

func (s *absenceStoreStub) FindByID(ctx context.Context, id string) (*models.AbsenceRecord, error) {
	if record, ok := s.byID[id]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

func (s *absenceStoreStub) FindByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.AbsenceRecord, error) {
	if record, ok := s.byKey[teacherID]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

func (s *absenceStoreStub) List(ctx context.Context, filter models.AbsenceFilter) ([]models.AbsenceRecord, error) {
	return nil, nil
}

func (s *absenceStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AbsenceRecord) error {
	if record.ID == "" {
		record.ID = "abs-new"
	}
	s.upserted = record
	return nil
}

func (s *absenceStoreStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.AbsenceStatus) error {
	s.statuses[id] = status
	return nil
}

type coverageStoreStub struct {
	byID            map[string]*models.CoverageRequest
	siblings        []models.CoverageRequest
	replaced        []models.CoverageRequest
	markAssignedErr error
	locked          bool
	assignedCalls   [][2]string
	assignments     []*models.CoverageAssignment
	cancelled       []string
	cancelPending   []string
}

func (s *coverageStoreStub) FindRequestByID(ctx context.Context, id string) (*models.CoverageRequest, error) {
	if request, ok := s.byID[id]; ok {
		return request, nil
	}
	return nil, sql.ErrNoRows
}

func (s *coverageStoreStub) ListByAbsence(ctx context.Context, absenceID string) ([]models.CoverageRequest, error) {
	return s.siblings, nil
}

func (s *coverageStoreStub) ReplaceForAbsence(ctx context.Context, exec sqlx.ExtContext, absenceID string, requests []models.CoverageRequest) error {
	s.replaced = requests
	return nil
}

func (s *coverageStoreStub) MarkAssigned(ctx context.Context, exec sqlx.ExtContext, requestID, substituteID string) error {
	if s.markAssignedErr != nil {
		return s.markAssignedErr
	}
	s.assignedCalls = append(s.assignedCalls, [2]string{requestID, substituteID})
	for i := range s.siblings {
		if s.siblings[i].ID == requestID {
			s.siblings[i].Status = models.CoverageStatusAssigned
		}
	}
	return nil
}

func (s *coverageStoreStub) MarkCancelled(ctx context.Context, requestID string) error {
	s.cancelled = append(s.cancelled, requestID)
	return nil
}

func (s *coverageStoreStub) CancelPendingByAbsence(ctx context.Context, exec sqlx.ExtContext, absenceID string) error {
	s.cancelPending = append(s.cancelPending, absenceID)
	return nil
}

func (s *coverageStoreStub) InsertAssignment(ctx context.Context, exec sqlx.ExtContext, assignment *models.CoverageAssignment) error {
	if assignment.ID == "" {
		assignment.ID = "asg-new"
	}
	s.assignments = append(s.assignments, assignment)
	return nil
}

func (s *coverageStoreStub) HasAssignmentAt(ctx context.Context, date time.Time, period int, teacherID string) (bool, error) {
	if s.locked {
		return true, nil
	}
	for _, assignment := range s.assignments {
		if assignment.Date.Equal(date) && assignment.Period == period && assignment.SubstituteID == teacherID {
			return true, nil
		}
	}
	return false, nil
}

type poolStoreStub struct {
	entries []*models.PoolEntry
}

func (s *poolStoreStub) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.PoolEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

type substitutionWriterStub struct {
	entries []*models.SubstitutionLog
}

func (s *substitutionWriterStub) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.SubstitutionLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

type lessonReaderStub struct {
	byTeacher map[string][]models.Lesson
}

func (s lessonReaderStub) ListByTeacher(ctx context.Context, teacherID string) ([]models.Lesson, error) {
	return s.byTeacher[teacherID], nil
}

type staffReaderStub struct {
	byID map[string]*models.Staff
}

func (s staffReaderStub) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	if staff, ok := s.byID[id]; ok {
		return staff, nil
	}
	return nil, sql.ErrNoRows
}

type absenceFixture struct {
	absences *absenceStoreStub
	coverage *coverageStoreStub
	pool     *poolStoreStub
	logs     *substitutionWriterStub
	mock     sqlmock.Sqlmock
	svc      *AbsenceService
}

func newAbsenceFixture(t *testing.T) *absenceFixture {
	txp, mock := newTxProviderMock(t)

	substitute := activeStaff("s-1", "Fia Rahma")
	inactive := models.Staff{ID: "s-off", FullName: "Nadia Retired", Active: false}
	teacher := activeStaff("t-1", "Dina Kurnia")

	tuesday := lessonAt("t-1", "10A", 1, models.LessonKindActual, false, "Math")
	tuesday.DayOfWeek = 2

	fixture := &absenceFixture{
		absences: &absenceStoreStub{
			byID:     map[string]*models.AbsenceRecord{},
			byKey:    map[string]*models.AbsenceRecord{},
			statuses: map[string]models.AbsenceStatus{},
		},
		coverage: &coverageStoreStub{byID: map[string]*models.CoverageRequest{}},
		pool:     &poolStoreStub{},
		logs:     &substitutionWriterStub{},
		mock:     mock,
	}
	fixture.svc = NewAbsenceService(
		fixture.absences,
		fixture.coverage,
		fixture.pool,
		fixture.logs,
		lessonReaderStub{byTeacher: map[string][]models.Lesson{
			"t-1": {
				lessonAt("t-1", "10A", 1, models.LessonKindActual, false, "Math"),
				lessonAt("t-1", "12C", 2, models.LessonKindIndividual, false, "Counseling"),
				lessonAt("t-1", "10A", 3, models.LessonKindActual, false, "Math"),
				lessonAt("t-1", "11B", 5, models.LessonKindActual, false, "English"),
				tuesday,
			},
		}},
		staffReaderStub{byID: map[string]*models.Staff{
			"t-1":   &teacher,
			"s-1":   &substitute,
			"s-off": &inactive,
		}},
		txp, nil, nil,
	)
	return fixture
}

func pendingRequest() *models.CoverageRequest {
	return &models.CoverageRequest{
		ID:              "r-1",
		AbsenceID:       "abs-1",
		AbsentTeacherID: "t-1",
		Date:            fixtureDate,
		Period:          3,
		ClassID:         "10A",
		Subject:         "Math",
		Status:          models.CoverageStatusPending,
	}
}

func openAbsence() *models.AbsenceRecord {
	return &models.AbsenceRecord{
		ID:              "abs-1",
		TeacherID:       "t-1",
		Date:            fixtureDate,
		Kind:            models.AbsenceKindFull,
		AffectedPeriods: models.PeriodSet{1, 2, 3, 5},
		Status:          models.AbsenceStatusOpen,
		Reason:          "flu",
	}
}

func TestAbsenceServiceCreateFullDerivesRequests(t *testing.T) {
	fixture := newAbsenceFixture(t)
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.svc.CreateOrUpdate(context.Background(), dto.CreateAbsenceRequest{
		TeacherID: "t-1",
		Date:      "2026-03-02",
		Kind:      "full",
		Reason:    "  flu  ",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PeriodSet{1, 2, 3, 5}, resp.Absence.AffectedPeriods, "FULL derives every period taught that day")
	assert.Equal(t, models.AbsenceStatusOpen, resp.Absence.Status)
	assert.Equal(t, "flu", resp.Absence.Reason)

	require.Len(t, resp.Requests, 3, "individual sessions need no substitute")
	periods := []int{resp.Requests[0].Period, resp.Requests[1].Period, resp.Requests[2].Period}
	assert.Equal(t, []int{1, 3, 5}, periods)
	for _, request := range resp.Requests {
		assert.Equal(t, models.CoverageStatusPending, request.Status)
		assert.Equal(t, "t-1", request.AbsentTeacherID)
	}
	assert.Len(t, fixture.coverage.replaced, 3)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAbsenceServiceCreateReplacesExistingRecord(t *testing.T) {
	fixture := newAbsenceFixture(t)
	fixture.absences.byKey["t-1"] = &models.AbsenceRecord{ID: "abs-9", TeacherID: "t-1", Date: fixtureDate}
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.svc.CreateOrUpdate(context.Background(), dto.CreateAbsenceRequest{
		TeacherID:       "t-1",
		Date:            "2026-03-02",
		Kind:            "PARTIAL",
		AffectedPeriods: []int{3},
	})
	require.NoError(t, err)

	assert.Equal(t, "abs-9", resp.Absence.ID, "re-filing the same teacher/date updates in place")
	require.Len(t, resp.Requests, 1)
	assert.Equal(t, 3, resp.Requests[0].Period)
}

func TestAbsenceServiceCreatePartialRequiresPeriods(t *testing.T) {
	fixture := newAbsenceFixture(t)

	_, err := fixture.svc.CreateOrUpdate(context.Background(), dto.CreateAbsenceRequest{
		TeacherID: "t-1",
		Date:      "2026-03-02",
		Kind:      "PARTIAL",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	fields := appErrors.Fields(err)
	require.NotEmpty(t, fields)
	assert.Equal(t, "affected_periods", fields[0].Field)
}

func TestAbsenceServiceCreateEarlyDepartureRequiresTimes(t *testing.T) {
	fixture := newAbsenceFixture(t)

	_, err := fixture.svc.CreateOrUpdate(context.Background(), dto.CreateAbsenceRequest{
		TeacherID:       "t-1",
		Date:            "2026-03-02",
		Kind:            "EARLY_DEPARTURE",
		AffectedPeriods: []int{5},
	})
	require.Error(t, err)

	fields := appErrors.Fields(err)
	names := make([]string, 0, len(fields))
	for _, failure := range fields {
		names = append(names, failure.Field)
	}
	assert.Contains(t, names, "effective_from")
	assert.Contains(t, names, "effective_to")
}

func TestAbsenceServiceCreateFullWithoutLessons(t *testing.T) {
	fixture := newAbsenceFixture(t)
	idle := activeStaff("t-idle", "Rio Nugroho")
	fixture.svc.staff.(staffReaderStub).byID["t-idle"] = &idle

	_, err := fixture.svc.CreateOrUpdate(context.Background(), dto.CreateAbsenceRequest{
		TeacherID: "t-idle",
		Date:      "2026-03-02",
		Kind:      "FULL",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, appErrors.FromError(err).Status)
}

func TestAbsenceServiceCreateUnknownTeacher(t *testing.T) {
	fixture := newAbsenceFixture(t)

	_, err := fixture.svc.CreateOrUpdate(context.Background(), dto.CreateAbsenceRequest{
		TeacherID: "t-404",
		Date:      "2026-03-02",
		Kind:      "FULL",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestAbsenceServiceAssignSubstituteSuccessCascadesCovered(t *testing.T) {
	fixture := newAbsenceFixture(t)
	request := pendingRequest()
	fixture.coverage.byID["r-1"] = request
	fixture.coverage.siblings = []models.CoverageRequest{
		*request,
		{ID: "r-2", AbsenceID: "abs-1", Status: models.CoverageStatusAssigned},
	}
	fixture.absences.byID["abs-1"] = openAbsence()
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-1")
	require.NoError(t, err)

	assert.Equal(t, "s-1", resp.Assignment.SubstituteID)
	assert.Equal(t, models.AbsenceStatusCovered, resp.Absence.Status, "last open slot flips the absence to COVERED")
	assert.Equal(t, models.AbsenceStatusCovered, fixture.absences.statuses["abs-1"])

	require.Len(t, fixture.pool.entries, 1)
	assert.Equal(t, models.PoolSourceAssignment, fixture.pool.entries[0].Source)
	require.NotNil(t, fixture.pool.entries[0].Period)
	assert.Equal(t, 3, *fixture.pool.entries[0].Period)

	require.Len(t, fixture.logs.entries, 1)
	assert.Equal(t, "Fia Rahma", fixture.logs.entries[0].SubstituteName)
	assert.Equal(t, "FULL", fixture.logs.entries[0].Kind)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAbsenceServiceAssignSubstituteLeavesAbsenceOpen(t *testing.T) {
	fixture := newAbsenceFixture(t)
	request := pendingRequest()
	fixture.coverage.byID["r-1"] = request
	fixture.coverage.siblings = []models.CoverageRequest{
		*request,
		{ID: "r-3", AbsenceID: "abs-1", Status: models.CoverageStatusPending},
	}
	fixture.absences.byID["abs-1"] = openAbsence()
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-1")
	require.NoError(t, err)

	assert.Equal(t, models.AbsenceStatusOpen, resp.Absence.Status)
	assert.Empty(t, fixture.absences.statuses)
}

func TestAbsenceServiceAssignSubstitutePeriodLocked(t *testing.T) {
	fixture := newAbsenceFixture(t)
	fixture.coverage.byID["r-1"] = pendingRequest()
	fixture.coverage.locked = true

	_, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, appErrors.ErrPeriodLocked.Code, appErr.Code)
}

func TestAbsenceServiceAssignSubstituteConcurrentResolution(t *testing.T) {
	fixture := newAbsenceFixture(t)
	fixture.coverage.byID["r-1"] = pendingRequest()
	fixture.coverage.markAssignedErr = sql.ErrNoRows
	fixture.absences.byID["abs-1"] = openAbsence()
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectRollback()

	_, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAbsenceServiceAssignSubstituteSerializesCascadePerDate(t *testing.T) {
	fixture := newAbsenceFixture(t)
	r1 := pendingRequest()
	r2 := &models.CoverageRequest{
		ID:              "r-2",
		AbsenceID:       "abs-1",
		AbsentTeacherID: "t-1",
		Date:            fixtureDate,
		Period:          5,
		ClassID:         "11B",
		Subject:         "English",
		Status:          models.CoverageStatusPending,
	}
	fixture.coverage.byID["r-1"] = r1
	fixture.coverage.byID["r-2"] = r2
	fixture.coverage.siblings = []models.CoverageRequest{*r1, *r2}
	fixture.absences.byID["abs-1"] = openAbsence()
	second := activeStaff("s-2", "Gita Lestari")
	fixture.svc.staff.(staffReaderStub).byID["s-2"] = &second
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-1")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := fixture.svc.AssignSubstitute(context.Background(), "r-2", "s-2")
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Equal(t, models.AbsenceStatusCovered, fixture.absences.statuses["abs-1"],
		"whichever assign lands second must see the first sibling ASSIGNED")
	assert.Len(t, fixture.coverage.assignments, 2)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAbsenceServiceAssignSubstituteDoubleBookingRejected(t *testing.T) {
	fixture := newAbsenceFixture(t)
	r1 := pendingRequest()
	fixture.coverage.byID["r-1"] = r1
	fixture.coverage.byID["r-4"] = &models.CoverageRequest{
		ID:              "r-4",
		AbsenceID:       "abs-2",
		AbsentTeacherID: "t-2",
		Date:            fixtureDate,
		Period:          3,
		ClassID:         "12C",
		Subject:         "History",
		Status:          models.CoverageStatusPending,
	}
	fixture.coverage.siblings = []models.CoverageRequest{*r1}
	fixture.absences.byID["abs-1"] = openAbsence()
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	_, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-1")
	require.NoError(t, err)

	_, err = fixture.svc.AssignSubstitute(context.Background(), "r-4", "s-1")
	require.Error(t, err, "the committed assignment locks the substitute for the period")
	assert.Equal(t, appErrors.ErrPeriodLocked.Code, appErrors.FromError(err).Code)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAbsenceServiceAssignSubstituteRejectsAbsentSubstitute(t *testing.T) {
	fixture := newAbsenceFixture(t)
	fixture.coverage.byID["r-1"] = pendingRequest()
	fixture.absences.byKey["s-1"] = &models.AbsenceRecord{
		ID: "abs-2", TeacherID: "s-1", Date: fixtureDate, Status: models.AbsenceStatusOpen,
	}

	_, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestAbsenceServiceAssignSubstituteRejectsInactive(t *testing.T) {
	fixture := newAbsenceFixture(t)
	fixture.coverage.byID["r-1"] = pendingRequest()

	_, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-off")
	require.Error(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, appErrors.FromError(err).Status)
}

func TestAbsenceServiceAssignSubstituteAlreadyResolved(t *testing.T) {
	fixture := newAbsenceFixture(t)
	request := pendingRequest()
	request.Status = models.CoverageStatusAssigned
	fixture.coverage.byID["r-1"] = request

	_, err := fixture.svc.AssignSubstitute(context.Background(), "r-1", "s-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestAbsenceServiceCancelAbsenceCascades(t *testing.T) {
	fixture := newAbsenceFixture(t)
	fixture.absences.byID["abs-1"] = openAbsence()
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	require.NoError(t, fixture.svc.CancelAbsence(context.Background(), "abs-1"))

	assert.Equal(t, models.AbsenceStatusCancelled, fixture.absences.statuses["abs-1"])
	assert.Contains(t, fixture.coverage.cancelPending, "abs-1")
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAbsenceServiceCancelAbsenceIdempotent(t *testing.T) {
	fixture := newAbsenceFixture(t)
	cancelled := openAbsence()
	cancelled.Status = models.AbsenceStatusCancelled
	fixture.absences.byID["abs-1"] = cancelled

	require.NoError(t, fixture.svc.CancelAbsence(context.Background(), "abs-1"))
	assert.Empty(t, fixture.absences.statuses)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAbsenceServiceCancelRequest(t *testing.T) {
	fixture := newAbsenceFixture(t)
	fixture.coverage.byID["r-1"] = pendingRequest()

	require.NoError(t, fixture.svc.CancelRequest(context.Background(), "r-1"))
	assert.Contains(t, fixture.coverage.cancelled, "r-1")

	err := fixture.svc.CancelRequest(context.Background(), "r-404")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
