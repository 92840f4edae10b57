package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fraudlens-api/internal/models"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
	"github.com/noah-isme/fraudlens-api/pkg/export"
	"github.com/noah-isme/fraudlens-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(dir string, ttl time.Duration) ([]string, error)
}

type renderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

type filteredViewProvider interface {
	Apply(ctx context.Context, filter models.FilterState) (*models.FilteredView, bool, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportFile is an opened export ready to stream.
type ExportFile struct {
	File        *os.File
	Name        string
	ContentType string
}

// ExportService renders filtered views to CSV or PDF and hands out signed download links.
type ExportService struct {
	views     filteredViewProvider
	storage   fileStorage
	renderers map[models.ExportFormat]renderer
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(views filteredViewProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		views:   views,
		storage: store,
		renderers: map[models.ExportFormat]renderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

var exportHeaders = []string{"ID", "Student ID", "Name", "Email", "Stage", "Status", "Risk Score", "Risk Tier", "Flags", "Submitted", "Updated"}

// Export renders the processed applications matching filter.
func (s *ExportService) Export(ctx context.Context, filter models.FilterState, format models.ExportFormat) (*models.ExportResult, error) {
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	view, _, err := s.views.Apply(ctx, filter)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	dataset := buildExportDataset(view.Items, generatedAt)
	payload, err := r.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	filename := fmt.Sprintf("processed_%s_%s.%s", generatedAt.Format("20060102_150405"), id[:8], r.Extension())
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	s.metrics.RecordExport(format)
	s.logger.Info("export generated", zap.String("export_id", id), zap.String("format", string(format)), zap.Int("rows", len(view.Items)))

	return &models.ExportResult{
		ID:          id,
		Format:      format,
		Rows:        len(view.Items),
		DownloadURL: fmt.Sprintf("%s/exports/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Open validates a download token and opens the referenced file.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	file, err := s.storage.Open(parsed.Path)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	contentType := "application/octet-stream"
	for _, r := range s.renderers {
		if strings.HasSuffix(parsed.Path, "."+r.Extension()) {
			contentType = r.ContentType()
		}
	}
	return &ExportFile{File: file, Name: path.Base(parsed.Path), ContentType: contentType}, nil
}

// Cleanup removes exports older than ttl (the configured TTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(".", ttl)
}

// RunCleanup removes expired exports every interval until ctx is cancelled.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Cleanup(0)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

func buildExportDataset(apps []models.Application, generatedAt time.Time) export.Dataset {
	rows := make([]map[string]string, 0, len(apps))
	for _, app := range apps {
		score, tier := "", ""
		if app.RiskScore != nil {
			score = strconv.Itoa(*app.RiskScore)
			tier = string(models.TierForScore(*app.RiskScore))
		}
		rows = append(rows, map[string]string{
			"ID":         app.ID,
			"Student ID": app.StudentID,
			"Name":       app.Name,
			"Email":      app.Email,
			"Stage":      string(app.Stage),
			"Status":     string(app.Status),
			"Risk Score": score,
			"Risk Tier":  tier,
			"Flags":      strings.Join(app.Flags, "; "),
			"Submitted":  formatExportTime(app.Timestamp),
			"Updated":    formatExportTime(app.UpdatedAt),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("FraudLens processed applications (%s)", generatedAt.Format(time.RFC3339)),
		Headers: exportHeaders,
		Rows:    rows,
	}
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
