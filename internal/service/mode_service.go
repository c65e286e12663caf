package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/models"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
)

type modeStore interface {
	List(ctx context.Context) ([]models.ModeConfig, error)
	FindByID(ctx context.Context, id string) (*models.ModeConfig, error)
	Insert(ctx context.Context, mode *models.ModeConfig) error
	Update(ctx context.Context, mode *models.ModeConfig) error
	Delete(ctx context.Context, id string) error
}

var goldenRuleTypes = map[string]bool{
	models.GoldenRuleExcludeExternal:       true,
	models.GoldenRuleRequireOnSite:         true,
	models.GoldenRuleRequireFreePeriod:     true,
	models.GoldenRuleMaxDailySubstitutions: true,
}

var ladderRuleTypes = map[string]bool{
	models.LadderRuleSameSubject:         true,
	models.LadderRuleClassEducator:       true,
	models.LadderRuleFewestSubstitutions: true,
	models.LadderRuleFreePeriod:          true,
	models.LadderRuleInterruptibleLesson: true,
}

// ModeService manages mode configurations. Modes are plain data records;
// their semantics live entirely in the policy interpreter, so saving a
// mode only validates structure, never behaviour.
type ModeService struct {
	repo      modeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModeService constructs a ModeService.
func NewModeService(repo modeStore, validate *validator.Validate, logger *zap.Logger) *ModeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModeService{repo: repo, validator: validate, logger: logger}
}

// List returns every mode configuration.
func (s *ModeService) List(ctx context.Context) ([]models.ModeConfig, error) {
	modes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mode configurations")
	}
	return modes, nil
}

// Get returns one mode configuration.
func (s *ModeService) Get(ctx context.Context, id string) (*models.ModeConfig, error) {
	mode, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mode configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mode configuration")
	}
	return mode, nil
}

// Create persists a new mode configuration.
func (s *ModeService) Create(ctx context.Context, req dto.SaveModeRequest) (*models.ModeConfig, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	mode := &models.ModeConfig{
		Name:            req.Name,
		LinkedEventType: models.EventType(req.LinkedEventType),
		GoldenRules:     models.GoldenRuleList(req.GoldenRules),
		Ladder:          models.LadderRuleList(req.Ladder),
		Enabled:         true,
	}
	if req.Enabled != nil {
		mode.Enabled = *req.Enabled
	}
	if err := s.repo.Insert(ctx, mode); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mode configuration")
	}
	s.logger.Info("mode configuration created", zap.String("mode_id", mode.ID), zap.String("name", mode.Name))
	return mode, nil
}

// Update replaces an existing mode configuration.
func (s *ModeService) Update(ctx context.Context, id string, req dto.SaveModeRequest) (*models.ModeConfig, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	mode, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mode.Name = req.Name
	mode.LinkedEventType = models.EventType(req.LinkedEventType)
	mode.GoldenRules = models.GoldenRuleList(req.GoldenRules)
	mode.Ladder = models.LadderRuleList(req.Ladder)
	if req.Enabled != nil {
		mode.Enabled = *req.Enabled
	}
	mode.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, mode); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mode configuration")
	}
	s.logger.Info("mode configuration updated", zap.String("mode_id", mode.ID))
	return mode, nil
}

// Delete removes a mode configuration.
func (s *ModeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "mode configuration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete mode configuration")
	}
	s.logger.Info("mode configuration deleted", zap.String("mode_id", id))
	return nil
}

func (s *ModeService) validateRequest(req dto.SaveModeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mode payload")
	}

	var failures []appErrors.ValidationFailure
	if !models.EventType(req.LinkedEventType).Valid() {
		failures = append(failures, appErrors.ValidationFailure{
			Field:  "linked_event_type",
			Reason: fmt.Sprintf("unsupported event type %q", req.LinkedEventType),
		})
	}
	for i, rule := range req.GoldenRules {
		if !goldenRuleTypes[rule.Type] {
			failures = append(failures, appErrors.ValidationFailure{
				Field:  fmt.Sprintf("golden_rules[%d].type", i),
				Reason: fmt.Sprintf("unknown golden rule %q", rule.Type),
			})
			continue
		}
		if rule.Type == models.GoldenRuleMaxDailySubstitutions && rule.Value < 1 {
			failures = append(failures, appErrors.ValidationFailure{
				Field:  fmt.Sprintf("golden_rules[%d].value", i),
				Reason: "max_daily_substitutions requires a value of at least 1",
			})
		}
	}
	for i, rule := range req.Ladder {
		if !ladderRuleTypes[rule.Type] {
			failures = append(failures, appErrors.ValidationFailure{
				Field:  fmt.Sprintf("ladder[%d].type", i),
				Reason: fmt.Sprintf("unknown ladder rule %q", rule.Type),
			})
			continue
		}
		if rule.Weight < 1 {
			failures = append(failures, appErrors.ValidationFailure{
				Field:  fmt.Sprintf("ladder[%d].weight", i),
				Reason: "weight must be at least 1",
			})
		}
		if cond := rule.Condition; cond != nil {
			if cond.MinGrade != nil && cond.MaxGrade != nil && *cond.MinGrade > *cond.MaxGrade {
				failures = append(failures, appErrors.ValidationFailure{
					Field:  fmt.Sprintf("ladder[%d].condition", i),
					Reason: "min_grade must not exceed max_grade",
				})
			}
			for _, eventType := range cond.EventTypes {
				if !eventType.Valid() {
					failures = append(failures, appErrors.ValidationFailure{
						Field:  fmt.Sprintf("ladder[%d].condition.event_types", i),
						Reason: fmt.Sprintf("unsupported event type %q", eventType),
					})
				}
			}
		}
	}
	if len(failures) > 0 {
		return appErrors.Validation(failures)
	}
	return nil
}
