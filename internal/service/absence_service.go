package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/models"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
)

type absenceStore interface {
	FindByID(ctx context.Context, id string) (*models.AbsenceRecord, error)
	FindByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.AbsenceRecord, error)
	List(ctx context.Context, filter models.AbsenceFilter) ([]models.AbsenceRecord, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AbsenceRecord) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.AbsenceStatus) error
}

type coverageStore interface {
	FindRequestByID(ctx context.Context, id string) (*models.CoverageRequest, error)
	ListByAbsence(ctx context.Context, absenceID string) ([]models.CoverageRequest, error)
	ReplaceForAbsence(ctx context.Context, exec sqlx.ExtContext, absenceID string, requests []models.CoverageRequest) error
	MarkAssigned(ctx context.Context, exec sqlx.ExtContext, requestID, substituteID string) error
	MarkCancelled(ctx context.Context, requestID string) error
	CancelPendingByAbsence(ctx context.Context, exec sqlx.ExtContext, absenceID string) error
	InsertAssignment(ctx context.Context, exec sqlx.ExtContext, assignment *models.CoverageAssignment) error
	HasAssignmentAt(ctx context.Context, date time.Time, period int, teacherID string) (bool, error)
}

type poolStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.PoolEntry) error
}

type substitutionWriter interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.SubstitutionLog) error
}

type lessonReader interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Lesson, error)
}

type staffReader interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// AbsenceService owns the absence/coverage lifecycle: the single place
// where commitments become durable facts. Both critical sections —
// replacing an absence's coverage requests and assigning a substitute
// with its status cascade — run as one transaction.
type AbsenceService struct {
	absences  absenceStore
	coverage  coverageStore
	pool      poolStore
	logs      substitutionWriter
	lessons   lessonReader
	staff     staffReader
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger

	// Mutations are serialized per date: the period-lock check and the
	// COVERED cascade read state outside the open transaction, so two
	// interleaved commits on the same date could otherwise both pass the
	// lock check or both miss the cascade.
	mu        sync.Mutex
	dateLocks map[string]*sync.Mutex
}

// NewAbsenceService wires lifecycle dependencies.
func NewAbsenceService(
	absences absenceStore,
	coverage coverageStore,
	pool poolStore,
	logs substitutionWriter,
	lessons lessonReader,
	staff staffReader,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceService{
		absences:  absences,
		coverage:  coverage,
		pool:      pool,
		logs:      logs,
		lessons:   lessons,
		staff:     staff,
		tx:        tx,
		validator: validate,
		logger:    logger,
		dateLocks: make(map[string]*sync.Mutex),
	}
}

func (s *AbsenceService) dateLock(date time.Time) *sync.Mutex {
	key := date.Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.dateLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.dateLocks[key] = lock
	}
	return lock
}

// CreateOrUpdate upserts the absence keyed by (teacher, date) and fully
// replaces its coverage requests with the newly derived set. An absence
// edit is authoritative: stale requests are dropped, not cancelled.
func (s *AbsenceService) CreateOrUpdate(ctx context.Context, req dto.CreateAbsenceRequest) (*dto.AbsenceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}

	kind := models.AbsenceKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	date, _ := time.Parse("2006-01-02", req.Date)

	if failures := validateAbsenceFields(req, kind); len(failures) > 0 {
		return nil, appErrors.Validation(failures)
	}

	teacher, err := s.staff.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	lessons, err := s.lessons.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher lessons")
	}
	dayLessons := lessonsOnDay(lessons, weekday(date))

	periods := derivePeriods(kind, req.AffectedPeriods, dayLessons)
	if len(periods) == 0 {
		if kind == models.AbsenceKindFull {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher has no lessons on this date")
		}
		return nil, appErrors.Validation([]appErrors.ValidationFailure{
			{Field: "affected_periods", Reason: "must not be empty"},
		})
	}

	record := &models.AbsenceRecord{
		TeacherID:       teacher.ID,
		Date:            date,
		Kind:            kind,
		AffectedPeriods: periods,
		Status:          models.AbsenceStatusOpen,
		Reason:          strings.TrimSpace(req.Reason),
		EffectiveFrom:   req.EffectiveFrom,
		EffectiveTo:     req.EffectiveTo,
	}
	lock := s.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	if existing, err := s.absences.FindByTeacherAndDate(ctx, teacher.ID, date); err == nil && existing != nil {
		record.ID = existing.ID
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up existing absence")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.absences.Upsert(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store absence")
		return nil, err
	}

	requests := deriveCoverageRequests(record, dayLessons)
	if err = s.coverage.ReplaceForAbsence(ctx, tx, record.ID, requests); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace coverage requests")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit absence")
		return nil, err
	}

	s.logger.Info("absence stored",
		zap.String("absence_id", record.ID),
		zap.String("teacher_id", record.TeacherID),
		zap.String("kind", string(record.Kind)),
		zap.Int("requests", len(requests)))

	return &dto.AbsenceResponse{Absence: *record, Requests: requests}, nil
}

// AssignSubstitute resolves a pending coverage request. The period lock is
// re-validated at commit time: a substitute already committed in the same
// period on the same date is rejected with a conflict, and the caller must
// re-run classification since the candidate pool has changed.
func (s *AbsenceService) AssignSubstitute(ctx context.Context, requestID, substituteID string) (*dto.AssignSubstituteResponse, error) {
	if requestID == "" || substituteID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requestId and substituteId are required")
	}

	request, err := s.coverage.FindRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "coverage request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coverage request")
	}
	if request.Status != models.CoverageStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "coverage request already resolved")
	}

	lock := s.dateLock(request.Date)
	lock.Lock()
	defer lock.Unlock()

	substitute, err := s.staff.FindByID(ctx, substituteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitute not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitute")
	}
	if !substitute.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "substitute is not active")
	}

	if ownAbsence, err := s.absences.FindByTeacherAndDate(ctx, substituteID, request.Date); err == nil &&
		ownAbsence != nil && ownAbsence.Status != models.AbsenceStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "substitute is absent on this date")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check substitute absence")
	}

	locked, err := s.coverage.HasAssignmentAt(ctx, request.Date, request.Period, substituteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check period lock")
	}
	if locked {
		return nil, appErrors.Clone(appErrors.ErrPeriodLocked, "")
	}

	absence, err := s.absences.FindByID(ctx, request.AbsenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent absence")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.coverage.MarkAssigned(ctx, tx, request.ID, substituteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrConflict, "coverage request resolved concurrently")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign substitute")
		return nil, err
	}

	assignment := &models.CoverageAssignment{
		CoverageRequestID: request.ID,
		SubstituteID:      substituteID,
		Date:              request.Date,
		Period:            request.Period,
		ClassID:           request.ClassID,
		AbsentTeacherID:   request.AbsentTeacherID,
		AbsenceID:         request.AbsenceID,
	}
	if err = s.coverage.InsertAssignment(ctx, tx, assignment); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record assignment")
		return nil, err
	}

	period := request.Period
	entry := &models.PoolEntry{
		Date:         request.Date,
		TeacherID:    substituteID,
		Source:       models.PoolSourceAssignment,
		Period:       &period,
		AssignmentID: &assignment.ID,
	}
	if err = s.pool.Insert(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record pool entry")
		return nil, err
	}

	logEntry := &models.SubstitutionLog{
		Date:            request.Date,
		Period:          request.Period,
		ClassID:         request.ClassID,
		AbsentTeacherID: request.AbsentTeacherID,
		SubstituteID:    substituteID,
		SubstituteName:  substitute.FullName,
		Kind:            string(absence.Kind),
		Reason:          absence.Reason,
	}
	if err = s.logs.Insert(ctx, tx, logEntry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record substitution log")
		return nil, err
	}

	covered, err := s.absenceFullyCovered(ctx, request.AbsenceID, request.ID)
	if err != nil {
		return nil, err
	}
	if covered {
		if err = s.absences.UpdateStatus(ctx, tx, absence.ID, models.AbsenceStatusCovered); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update absence status")
			return nil, err
		}
		absence.Status = models.AbsenceStatusCovered
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignment")
		return nil, err
	}

	s.logger.Info("substitute assigned",
		zap.String("request_id", request.ID),
		zap.String("substitute_id", substituteID),
		zap.Int("period", request.Period),
		zap.Bool("absence_covered", covered))

	return &dto.AssignSubstituteResponse{Assignment: *assignment, Absence: *absence}, nil
}

// CancelRequest marks one coverage request cancelled. Siblings and the
// parent absence are untouched: a COVERED absence never flips back to
// OPEN automatically.
func (s *AbsenceService) CancelRequest(ctx context.Context, requestID string) error {
	if _, err := s.coverage.FindRequestByID(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "coverage request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coverage request")
	}
	if err := s.coverage.MarkCancelled(ctx, requestID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel coverage request")
	}
	return nil
}

// CancelAbsence cancels the absence and its still-pending requests.
func (s *AbsenceService) CancelAbsence(ctx context.Context, absenceID string) error {
	absence, err := s.absences.FindByID(ctx, absenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	if absence.Status == models.AbsenceStatusCancelled {
		return nil
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.absences.UpdateStatus(ctx, tx, absenceID, models.AbsenceStatusCancelled); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel absence")
		return err
	}
	if err = s.coverage.CancelPendingByAbsence(ctx, tx, absenceID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel pending requests")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit cancellation")
		return err
	}
	return nil
}

// Get returns an absence with its coverage requests.
func (s *AbsenceService) Get(ctx context.Context, absenceID string) (*dto.AbsenceResponse, error) {
	absence, err := s.absences.FindByID(ctx, absenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	requests, err := s.coverage.ListByAbsence(ctx, absenceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list coverage requests")
	}
	return &dto.AbsenceResponse{Absence: *absence, Requests: requests}, nil
}

// List returns absences matching the filter.
func (s *AbsenceService) List(ctx context.Context, query dto.AbsenceQuery) ([]models.AbsenceRecord, error) {
	filter := models.AbsenceFilter{TeacherID: query.TeacherID}
	if query.Date != "" {
		date, err := time.Parse("2006-01-02", query.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		filter.Date = &date
	}
	if query.Status != "" {
		status := models.AbsenceStatus(strings.ToUpper(query.Status))
		filter.Status = &status
	}
	records, err := s.absences.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	return records, nil
}

func (s *AbsenceService) absenceFullyCovered(ctx context.Context, absenceID, justAssignedID string) (bool, error) {
	siblings, err := s.coverage.ListByAbsence(ctx, absenceID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sibling requests")
	}
	for _, sibling := range siblings {
		if sibling.Status == models.CoverageStatusCancelled {
			continue
		}
		if sibling.ID == justAssignedID {
			continue
		}
		if sibling.Status != models.CoverageStatusAssigned {
			return false, nil
		}
	}
	return true, nil
}

func validateAbsenceFields(req dto.CreateAbsenceRequest, kind models.AbsenceKind) []appErrors.ValidationFailure {
	var failures []appErrors.ValidationFailure
	if !kind.Valid() {
		failures = append(failures, appErrors.ValidationFailure{Field: "kind", Reason: "must be FULL, PARTIAL, EARLY_DEPARTURE or LATE_ARRIVAL"})
		return failures
	}
	if kind == models.AbsenceKindPartial && len(req.AffectedPeriods) == 0 {
		failures = append(failures, appErrors.ValidationFailure{Field: "affected_periods", Reason: "required for PARTIAL absences"})
	}
	if kind.RequiresEffectiveTimes() {
		if req.EffectiveFrom == nil || *req.EffectiveFrom == "" {
			failures = append(failures, appErrors.ValidationFailure{Field: "effective_from", Reason: "required for " + string(kind)})
		}
		if req.EffectiveTo == nil || *req.EffectiveTo == "" {
			failures = append(failures, appErrors.ValidationFailure{Field: "effective_to", Reason: "required for " + string(kind)})
		}
		if len(req.AffectedPeriods) == 0 {
			failures = append(failures, appErrors.ValidationFailure{Field: "affected_periods", Reason: "required for " + string(kind)})
		}
	}
	for _, period := range req.AffectedPeriods {
		if period < 1 {
			failures = append(failures, appErrors.ValidationFailure{Field: "affected_periods", Reason: "periods must be >= 1"})
			break
		}
	}
	return failures
}

// derivePeriods resolves the affected periods: for FULL absences every
// period the teacher teaches that day, otherwise exactly the supplied set.
func derivePeriods(kind models.AbsenceKind, supplied []int, dayLessons []models.Lesson) models.PeriodSet {
	if kind == models.AbsenceKindFull {
		seen := make(map[int]struct{}, len(dayLessons))
		periods := make([]int, 0, len(dayLessons))
		for _, lesson := range dayLessons {
			if _, ok := seen[lesson.Period]; ok {
				continue
			}
			seen[lesson.Period] = struct{}{}
			periods = append(periods, lesson.Period)
		}
		sort.Ints(periods)
		return periods
	}

	seen := make(map[int]struct{}, len(supplied))
	periods := make([]int, 0, len(supplied))
	for _, period := range supplied {
		if _, ok := seen[period]; ok {
			continue
		}
		seen[period] = struct{}{}
		periods = append(periods, period)
	}
	sort.Ints(periods)
	return periods
}

// deriveCoverageRequests spawns one request per affected period where the
// teacher has a class-facing lesson. Individual, stay and duty slots do
// not leave a class unattended and need no substitute.
func deriveCoverageRequests(record *models.AbsenceRecord, dayLessons []models.Lesson) []models.CoverageRequest {
	requests := make([]models.CoverageRequest, 0, len(record.AffectedPeriods))
	for _, period := range record.AffectedPeriods {
		for _, lesson := range dayLessons {
			if lesson.Period != period || lesson.Kind != models.LessonKindActual {
				continue
			}
			requests = append(requests, models.CoverageRequest{
				AbsenceID:       record.ID,
				AbsentTeacherID: record.TeacherID,
				Date:            record.Date,
				Period:          period,
				ClassID:         lesson.ClassID,
				Subject:         lesson.Subject,
				Status:          models.CoverageStatusPending,
			})
			break
		}
	}
	return requests
}

func lessonsOnDay(lessons []models.Lesson, day int) []models.Lesson {
	result := make([]models.Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		if lesson.DayOfWeek == day {
			result = append(result, lesson)
		}
	}
	return result
}

func weekday(date time.Time) int {
	day := int(date.Weekday())
	if day == 0 {
		return 7
	}
	return day
}
