package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fraudlens-api/internal/models"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
)

type applicationLoader interface {
	Load(ctx context.Context) (*LoadResult, error)
}

// ReloadSummary reports the outcome of a reload.
type ReloadSummary struct {
	Origin    string    `json:"origin"`
	Queue     int       `json:"queue"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	LoadedAt  time.Time `json:"loadedAt"`
}

// ApplicationService exposes the processing engine to the HTTP layer.
type ApplicationService struct {
	engine      *ProcessingEngine
	loader      applicationLoader
	invalidator viewInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewApplicationService wires the engine with its data source.
func NewApplicationService(engine *ProcessingEngine, loader applicationLoader, invalidator viewInvalidator, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{engine: engine, loader: loader, invalidator: invalidator, logger: logger, now: time.Now}
}

// Snapshot returns the current queue state.
func (s *ApplicationService) Snapshot() models.QueueSnapshot {
	return s.engine.Snapshot()
}

// Reload replaces the engine collections from the source, abandoning in-flight work.
func (s *ApplicationService) Reload(ctx context.Context) (*ReloadSummary, error) {
	result, err := s.loader.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to load applications")
	}
	s.engine.Load(result.Queue, result.Processed)
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("filter cache invalidation failed", zap.Error(err))
		}
	}
	return &ReloadSummary{
		Origin:    result.Origin,
		Queue:     len(result.Queue),
		Processed: len(result.Processed),
		Skipped:   result.Skipped,
		LoadedAt:  s.now().UTC(),
	}, nil
}

// ProcessOne starts review of a single application; false means not applied.
func (s *ApplicationService) ProcessOne(id string) bool {
	return s.engine.ProcessOne(id)
}

// ProcessBatch starts a bulk run; false means not applied.
func (s *ApplicationService) ProcessBatch() bool {
	return s.engine.ProcessBatch()
}

// Decide records a manual decision on a processed application.
func (s *ApplicationService) Decide(id string, status models.ApplicationStatus) (*models.Application, error) {
	app, err := s.engine.Decide(id, status)
	if err != nil {
		return nil, err
	}
	return &app, nil
}
