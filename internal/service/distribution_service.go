package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/models"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
	"github.com/noah-isme/sma-coverage-api/pkg/jobs"
)

type distributionAbsenceReader interface {
	FindByID(ctx context.Context, id string) (*models.AbsenceRecord, error)
	List(ctx context.Context, filter models.AbsenceFilter) ([]models.AbsenceRecord, error)
}

type distributionCoverageReader interface {
	ListByAbsence(ctx context.Context, absenceID string) ([]models.CoverageRequest, error)
	ListAssignedByDate(ctx context.Context, date time.Time) ([]models.CoverageRequest, error)
}

type rosterReader interface {
	ListActive(ctx context.Context) ([]models.Staff, error)
}

type classLister interface {
	List(ctx context.Context) ([]models.Class, error)
}

type lessonLister interface {
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error)
}

type poolReader interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.PoolEntry, error)
}

type substitutionCounter interface {
	CountsByDate(ctx context.Context, date time.Time) (map[string]int, error)
}

type modeReader interface {
	FindByID(ctx context.Context, id string) (*models.ModeConfig, error)
}

type gridCache interface {
	SaveGrid(ctx context.Context, grid *models.DistributionGrid, ttl time.Duration) error
	GetGrid(ctx context.Context, runID string) (*models.DistributionGrid, error)
}

type slotClassifier interface {
	Classify(slot models.SlotContext, snap *models.ScheduleSnapshot) models.ClassifiedCandidates
}

type modeEvaluator interface {
	Evaluate(mode models.ModeConfig, slot models.SlotContext, snap *models.ScheduleSnapshot) []models.RankedCandidate
}

type swapAnalyzer interface {
	Analyze(classID string, absentPeriod int, snap *models.ScheduleSnapshot) models.SwapProposal
}

type substituteAssigner interface {
	AssignSubstitute(ctx context.Context, requestID, substituteID string) (*dto.AssignSubstituteResponse, error)
}

type engineMetrics interface {
	ObserveDistributionRun(decisions, uncovered int)
	IncAssignments()
	IncAssignmentConflicts()
}

// DistributionConfig tunes run behaviour.
type DistributionConfig struct {
	GridCacheTTL time.Duration
	AutoAssign   bool
}

// DistributionService orchestrates classifier and policy evaluation
// across every slot implied by an absence or a set of confirmed modes.
// Each run is a pure function of one consistent snapshot: rerunning with
// unchanged inputs yields an identical decision grid, so the service
// recomputes rather than patching stale state.
type DistributionService struct {
	absences   distributionAbsenceReader
	coverage   distributionCoverageReader
	staff      rosterReader
	classes    classLister
	lessons    lessonLister
	pool       poolReader
	logs       substitutionCounter
	modes      modeReader
	classifier slotClassifier
	policy     modeEvaluator
	swap       swapAnalyzer
	assigner   substituteAssigner
	cache      gridCache
	queue      *jobs.Queue
	metrics    engineMetrics
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        DistributionConfig
}

// NewDistributionService wires distribution dependencies. The queue is
// optional; without it async runs are rejected.
func NewDistributionService(
	absences distributionAbsenceReader,
	coverage distributionCoverageReader,
	staff rosterReader,
	classes classLister,
	lessons lessonLister,
	pool poolReader,
	logs substitutionCounter,
	modes modeReader,
	classifier slotClassifier,
	policy modeEvaluator,
	swap swapAnalyzer,
	assigner substituteAssigner,
	cache gridCache,
	metrics engineMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DistributionConfig,
) *DistributionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GridCacheTTL <= 0 {
		cfg.GridCacheTTL = 30 * time.Minute
	}
	return &DistributionService{
		absences:   absences,
		coverage:   coverage,
		staff:      staff,
		classes:    classes,
		lessons:    lessons,
		pool:       pool,
		logs:       logs,
		modes:      modes,
		classifier: classifier,
		policy:     policy,
		swap:       swap,
		assigner:   assigner,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// AttachQueue registers the worker queue used for async mode runs.
func (s *DistributionService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// PlanForAbsence classifies every pending coverage request spawned by the
// absence and proposes the top candidate per slot. Proposals lock their
// period inside the batch so one acceptance shrinks the pool for the
// remaining slots. With commit=true, or when auto-assign is configured,
// the top candidates are assigned through the lifecycle manager, which
// re-validates the period lock.
func (s *DistributionService) PlanForAbsence(ctx context.Context, absenceID string, commit bool) (*models.DistributionGrid, error) {
	commit = commit || s.cfg.AutoAssign

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
	pending := make([]models.CoverageRequest, 0, len(requests))
	for _, request := range requests {
		if request.Status == models.CoverageStatusPending {
			pending = append(pending, request)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Period != pending[j].Period {
			return pending[i].Period < pending[j].Period
		}
		return pending[i].ClassID < pending[j].ClassID
	})

	snap, err := s.buildSnapshot(ctx, absence.Date)
	if err != nil {
		return nil, err
	}

	grid := &models.DistributionGrid{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, request := range pending {
		slot := models.SlotContext{
			Date:            request.Date,
			Day:             snap.Day,
			Period:          request.Period,
			ClassID:         request.ClassID,
			Subject:         request.Subject,
			AbsentTeacherID: request.AbsentTeacherID,
		}
		decision := models.SlotDecision{
			Slot:            slot.Key(),
			Subject:         request.Subject,
			AbsentTeacherID: request.AbsentTeacherID,
		}

		candidates := s.classifier.Classify(slot, snap)
		if best := candidates.Best(false); best != nil {
			decision.Covered = true
			decision.Candidate = tierRanked(best)
			snap.Lock(request.Period, best.TeacherID)
		}

		if commit && decision.Covered {
			if _, err := s.assigner.AssignSubstitute(ctx, request.ID, decision.Candidate.TeacherID); err != nil {
				appErr := appErrors.FromError(err)
				if appErr.Status == 409 {
					if s.metrics != nil {
						s.metrics.IncAssignmentConflicts()
					}
					s.logger.Warn("assignment conflict, slot left uncovered",
						zap.String("request_id", request.ID),
						zap.String("substitute_id", decision.Candidate.TeacherID))
					decision.Covered = false
					decision.Candidate = nil
				} else {
					return nil, err
				}
			} else if s.metrics != nil {
				s.metrics.IncAssignments()
			}
		}

		if !decision.Covered {
			grid.Uncovered++
		}
		grid.Decisions = append(grid.Decisions, decision)
	}

	if s.metrics != nil {
		s.metrics.ObserveDistributionRun(len(grid.Decisions), grid.Uncovered)
	}
	s.saveGrid(ctx, grid)
	return grid, nil
}

// PlanForModes runs the mode-driven bulk distribution over the Cartesian
// product of each confirmed mode's classes and periods. Slots without an
// original lesson are skipped; slots with no candidate scoring above zero
// are recorded as uncovered, never dropped. Per-slot decisions are
// independent: one uncovered slot never rolls back the batch.
func (s *DistributionService) PlanForModes(ctx context.Context, req dto.ModeDistributionRequest) (*models.DistributionGrid, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid distribution payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	confirmed := make([]dto.ConfirmedMode, len(req.Modes))
	copy(confirmed, req.Modes)
	sort.SliceStable(confirmed, func(i, j int) bool { return confirmed[i].ModeID < confirmed[j].ModeID })

	snap, err := s.buildSnapshot(ctx, date)
	if err != nil {
		return nil, err
	}

	grid := &models.DistributionGrid{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, selection := range confirmed {
		mode, err := s.modes.FindByID(ctx, selection.ModeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "mode configuration not found: "+selection.ModeID)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mode configuration")
		}
		if !mode.Enabled {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "mode is disabled: "+mode.Name)
		}

		classIDs := uniqueSortedStrings(selection.ClassIDs)
		periods := uniqueSortedInts(selection.Periods)

		for _, classID := range classIDs {
			for _, period := range periods {
				lesson := snap.ClassLessonAt(classID, period)
				if lesson == nil {
					continue
				}
				slot := models.SlotContext{
					Date:            date,
					Day:             snap.Day,
					Period:          period,
					ClassID:         classID,
					Subject:         lesson.Subject,
					AbsentTeacherID: lesson.TeacherID,
				}
				decision := models.SlotDecision{
					Slot:            slot.Key(),
					Subject:         lesson.Subject,
					AbsentTeacherID: lesson.TeacherID,
					ModeContext:     mode.Name,
				}

				ranked := s.policy.Evaluate(*mode, slot, snap)
				if len(ranked) > 0 && ranked[0].Score > 0 {
					best := ranked[0]
					decision.Covered = true
					decision.Candidate = &best
					snap.Lock(period, best.TeacherID)
				} else {
					grid.Uncovered++
				}
				grid.Decisions = append(grid.Decisions, decision)
			}
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveDistributionRun(len(grid.Decisions), grid.Uncovered)
	}
	s.saveGrid(ctx, grid)
	return grid, nil
}

// EnqueueModeRun schedules a bulk run on the worker queue and returns the
// run ID the grid will be stored under.
func (s *DistributionService) EnqueueModeRun(ctx context.Context, req dto.ModeDistributionRequest) (string, error) {
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "distribution queue not configured")
	}
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid distribution payload")
	}
	runID := uuid.NewString()
	err := s.queue.Enqueue(jobs.Job{
		ID:      runID,
		Type:    "mode_distribution",
		Payload: req,
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue distribution run")
	}
	return runID, nil
}

// HandleModeRunJob is the queue handler executing an async bulk run.
func (s *DistributionService) HandleModeRunJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.ModeDistributionRequest)
	if !ok {
		return appErrors.Clone(appErrors.ErrInternal, "unexpected distribution job payload")
	}
	grid, err := s.PlanForModes(ctx, req)
	if err != nil {
		return err
	}
	grid.RunID = job.ID
	s.saveGrid(ctx, grid)
	return nil
}

// GetRun fetches a previously computed grid by run ID.
func (s *DistributionService) GetRun(ctx context.Context, runID string) (*models.DistributionGrid, error) {
	if s.cache == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "grid cache not configured")
	}
	grid, err := s.cache.GetGrid(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load distribution run")
	}
	if grid == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "distribution run not found or expired")
	}
	return grid, nil
}

// CandidatesForSlot classifies a single slot on demand, e.g. for the
// dashboard's manual assignment picker.
func (s *DistributionService) CandidatesForSlot(ctx context.Context, query dto.CandidateQuery) (*models.ClassifiedCandidates, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid candidate query")
	}
	date, err := time.Parse("2006-01-02", query.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	snap, err := s.buildSnapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	slot := models.SlotContext{
		Date:            date,
		Day:             snap.Day,
		Period:          query.Period,
		ClassID:         query.ClassID,
		AbsentTeacherID: query.AbsentTeacherID,
	}
	if lesson := snap.ClassLessonAt(query.ClassID, query.Period); lesson != nil {
		slot.Subject = lesson.Subject
		if slot.AbsentTeacherID == "" {
			slot.AbsentTeacherID = lesson.TeacherID
		}
	}
	candidates := s.classifier.Classify(slot, snap)
	return &candidates, nil
}

// AnalyzeSwap evaluates the class-swap alternative for a slot. The result
// is a proposal only; applying it is a manual timetable change.
func (s *DistributionService) AnalyzeSwap(ctx context.Context, query dto.SwapQuery) (*models.SwapProposal, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap query")
	}
	date, err := time.Parse("2006-01-02", query.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	snap, err := s.buildSnapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	proposal := s.swap.Analyze(query.ClassID, query.Period, snap)
	return &proposal, nil
}

// buildSnapshot assembles one consistent read of the date's state. Every
// decision in a run is computed from this snapshot; persisted assignments
// appear as period locks so planned candidates never double-book.
func (s *DistributionService) buildSnapshot(ctx context.Context, date time.Time) (*models.ScheduleSnapshot, error) {
	lessons, err := s.lessons.List(ctx, models.LessonFilter{DayOfWeek: weekday(date)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	staff, err := s.staff.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff roster")
	}
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	absences, err := s.absences.List(ctx, models.AbsenceFilter{Date: &date})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absences")
	}
	pool, err := s.pool.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load daily pool")
	}
	counts, err := s.logs.CountsByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution counts")
	}

	absentIDs := make([]string, 0, len(absences))
	for _, absence := range absences {
		if absence.Status != models.AbsenceStatusCancelled {
			absentIDs = append(absentIDs, absence.TeacherID)
		}
	}

	snap := models.NewScheduleSnapshot(date, lessons, staff, classes, absentIDs, pool, counts)

	assigned, err := s.coverage.ListAssignedByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing assignments")
	}
	for _, request := range assigned {
		if request.AssignedSubstituteID != nil {
			snap.Lock(request.Period, *request.AssignedSubstituteID)
		}
	}

	return snap, nil
}

func (s *DistributionService) saveGrid(ctx context.Context, grid *models.DistributionGrid) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveGrid(ctx, grid, s.cfg.GridCacheTTL); err != nil {
		s.logger.Warn("failed to cache distribution grid", zap.String("run_id", grid.RunID), zap.Error(err))
	}
}

// tierRanked converts a classifier candidate into the uniform ranking
// shape so tier-driven and policy-driven decisions compare downstream.
func tierRanked(candidate *models.Candidate) *models.RankedCandidate {
	rank := candidate.Tier.Rank()
	score := float64(100 - (rank-1)*10 - (candidate.Priority - 1))
	return &models.RankedCandidate{
		TeacherID: candidate.TeacherID,
		Name:      candidate.Name,
		Score:     score,
		Reason:    candidate.Reason,
		Breakdown: []string{"tier " + string(candidate.Tier)},
	}
}

func uniqueSortedStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	sort.Strings(result)
	return result
}

func uniqueSortedInts(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	result := make([]int, 0, len(values))
	for _, value := range values {
		if value < 1 {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	sort.Ints(result)
	return result
}
