package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/models"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
)

// SubstitutionService reads the durable substitution ledger for display.
type SubstitutionService struct {
	logs   substitutionLister
	logger *zap.Logger
}

// NewSubstitutionService constructs a SubstitutionService.
func NewSubstitutionService(logs substitutionLister, logger *zap.Logger) *SubstitutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstitutionService{logs: logs, logger: logger}
}

// List returns ledger entries, optionally scoped to a date, teacher or class.
func (s *SubstitutionService) List(ctx context.Context, date, teacherID, classID string) ([]models.SubstitutionLog, error) {
	filter := models.SubstitutionLogFilter{TeacherID: teacherID, ClassID: classID}
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		filter.Date = &parsed
	}
	entries, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitution ledger")
	}
	return entries, nil
}
