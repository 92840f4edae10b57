package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fraudlens-api/internal/models"
)

// OutcomeRepository appends terminal review results to application_outcomes.
type OutcomeRepository struct {
	db *sqlx.DB
}

// NewOutcomeRepository constructs the repository.
func NewOutcomeRepository(db *sqlx.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Insert stores a single outcome row and fills its generated id.
func (r *OutcomeRepository) Insert(ctx context.Context, outcome *models.ApplicationOutcome) error {
	const query = `INSERT INTO application_outcomes
(application_id, student_id, stage, status, risk_score, risk_tier, flags, source, recorded_at)
VALUES (:application_id, :student_id, :stage, :status, :risk_score, :risk_tier, :flags, :source, :recorded_at)
RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, outcome)
	if err != nil {
		return fmt.Errorf("insert application outcome: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&outcome.ID); err != nil {
			return fmt.Errorf("scan application outcome id: %w", err)
		}
	}
	return rows.Err()
}

// ListByApplication returns the outcome history for an application, newest first.
func (r *OutcomeRepository) ListByApplication(ctx context.Context, applicationID string, limit int) ([]models.ApplicationOutcome, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, application_id, student_id, stage, status, risk_score, risk_tier, flags, source, recorded_at
FROM application_outcomes WHERE application_id = $1 ORDER BY recorded_at DESC LIMIT $2`
	var outcomes []models.ApplicationOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query, applicationID, limit); err != nil {
		return nil, fmt.Errorf("list application outcomes: %w", err)
	}
	return outcomes, nil
}
