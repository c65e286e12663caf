package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/models"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
	"github.com/noah-isme/sma-coverage-api/pkg/export"
	"github.com/noah-isme/sma-coverage-api/pkg/storage"
)

type substitutionLister interface {
	List(ctx context.Context, filter models.SubstitutionLogFilter) ([]models.SubstitutionLog, error)
}

type staffNameReader interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders the substitution ledger as downloadable files.
type ExportService struct {
	logs      substitutionLister
	staff     staffNameReader
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(logs substitutionLister, staff staffNameReader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		logs:      logs,
		staff:     staff,
		storage:   files,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the substitution ledger for one date and stores the file.
func (s *ExportService) Generate(ctx context.Context, query dto.ExportQuery) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	date, err := time.Parse("2006-01-02", query.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	entries, err := s.logs.List(ctx, models.SubstitutionLogFilter{Date: &date})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution ledger")
	}

	dataset := s.buildDataset(ctx, entries)
	title := fmt.Sprintf("Substitution Ledger %s", query.Date)

	var payload []byte
	switch query.Format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", query.Format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("substitutions_%s_%s.%s", query.Date, time.Now().UTC().Format("20060102_150405"), query.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(filename, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &dto.ExportResponse{
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:    query.Format,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Rows:      len(entries),
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, entries []models.SubstitutionLog) export.Dataset {
	names := make(map[string]string)
	resolve := func(id string) string {
		if id == "" {
			return ""
		}
		if name, ok := names[id]; ok {
			return name
		}
		name := id
		if staff, err := s.staff.FindByID(ctx, id); err == nil && staff != nil {
			name = staff.FullName
		}
		names[id] = name
		return name
	}

	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		substituteName := entry.SubstituteName
		if substituteName == "" {
			substituteName = resolve(entry.SubstituteID)
		}
		modeContext := ""
		if entry.ModeContext != nil {
			modeContext = *entry.ModeContext
		}
		rows = append(rows, map[string]string{
			"Date":           entry.Date.Format("2006-01-02"),
			"Period":         fmt.Sprintf("%d", entry.Period),
			"Class":          entry.ClassID,
			"Absent Teacher": resolve(entry.AbsentTeacherID),
			"Substitute":     substituteName,
			"Kind":           entry.Kind,
			"Reason":         entry.Reason,
			"Mode":           modeContext,
		})
	}
	return export.Dataset{
		Headers: []string{"Date", "Period", "Class", "Absent Teacher", "Substitute", "Kind", "Reason", "Mode"},
		Rows:    rows,
	}
}
