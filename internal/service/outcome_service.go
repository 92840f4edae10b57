package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fraudlens-api/internal/models"
	"github.com/noah-isme/fraudlens-api/pkg/jobs"
)

// OutcomeJobKind identifies outcome recorder jobs.
const OutcomeJobKind = "application_outcome"

type outcomeWriter interface {
	Insert(ctx context.Context, outcome *models.ApplicationOutcome) error
}

type viewInvalidator interface {
	Invalidate(ctx context.Context) error
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// OutcomeService appends terminal results to the outcome log in the background.
// It implements OutcomeSink for the processing engine.
type OutcomeService struct {
	repo        outcomeWriter
	invalidator viewInvalidator
	queue       jobEnqueuer
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewOutcomeService constructs the recorder. Call AttachQueue before recording.
func NewOutcomeService(repo outcomeWriter, invalidator viewInvalidator, metrics *MetricsService, logger *zap.Logger) *OutcomeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeService{repo: repo, invalidator: invalidator, metrics: metrics, logger: logger}
}

// AttachQueue sets the queue that Record enqueues onto.
func (s *OutcomeService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Record enqueues an outcome without blocking the caller. Full queues drop the record.
func (s *OutcomeService) Record(app models.Application, source models.OutcomeSource) {
	if s.queue == nil {
		return
	}
	outcome := models.OutcomeFromApplication(app, source)
	job := jobs.Job{ID: uuid.NewString(), Kind: OutcomeJobKind, Payload: outcome}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.metrics.RecordOutcomeJob("dropped")
		s.logger.Warn("outcome dropped", zap.String("application_id", app.ID), zap.Error(err))
	}
}

// Handle processes one outcome job; it is the queue handler.
func (s *OutcomeService) Handle(ctx context.Context, job jobs.Job) error {
	outcome, ok := job.Payload.(models.ApplicationOutcome)
	if !ok {
		s.metrics.RecordOutcomeJob("failed")
		s.logger.Error("unexpected outcome payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	if err := s.repo.Insert(ctx, &outcome); err != nil {
		s.metrics.RecordOutcomeJob("failed")
		return fmt.Errorf("record outcome for %s: %w", outcome.ApplicationID, err)
	}
	s.metrics.RecordOutcomeJob("ok")

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("filter cache invalidation failed", zap.Error(err))
		}
	}
	s.logger.Debug("outcome recorded",
		zap.String("application_id", outcome.ApplicationID),
		zap.String("status", outcome.Status),
		zap.String("source", string(outcome.Source)),
	)
	return nil
}
