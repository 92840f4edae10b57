package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/fraudlens-api/internal/models"
)

// FilterQuery is the query-string form of a FilterState.
type FilterQuery struct {
	Search   string   `form:"search"`
	RiskMin  *int     `form:"riskMin"`
	RiskMax  *int     `form:"riskMax"`
	Statuses []string `form:"status"`
	Stages   []string `form:"stage"`
	From     string   `form:"from"`
	To       string   `form:"to"`
}

// ToFilterState converts the query into a FilterState. Repeated and
// comma-separated status/stage values are both accepted.
func (q FilterQuery) ToFilterState() (models.FilterState, error) {
	filter := models.DefaultFilterState()
	filter.Search = q.Search
	if q.RiskMin != nil {
		filter.RiskScore[0] = *q.RiskMin
	}
	if q.RiskMax != nil {
		filter.RiskScore[1] = *q.RiskMax
	}
	for _, status := range splitValues(q.Statuses) {
		filter.Statuses = append(filter.Statuses, models.ApplicationStatus(status))
	}
	for _, stage := range splitValues(q.Stages) {
		filter.Stages = append(filter.Stages, models.ApplicationStage(stage))
	}

	from, err := parseQueryDate(q.From)
	if err != nil {
		return models.FilterState{}, fmt.Errorf("from: %w", err)
	}
	to, err := parseQueryDate(q.To)
	if err != nil {
		return models.FilterState{}, fmt.Errorf("to: %w", err)
	}
	filter.DateRange = [2]*time.Time{from, to}
	return filter, nil
}

func splitValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseQueryDate accepts RFC 3339 timestamps, YYYY-MM-DD dates and unix seconds.
func parseQueryDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	return nil, fmt.Errorf("unrecognised date %q", raw)
}

// DecisionRequest sets a manual review outcome.
type DecisionRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required,oneof=approved rejected escalated onhold in_review lowRisk"`
}

// ActionResult reports whether an engine command took effect.
type ActionResult struct {
	ID      string `json:"id,omitempty"`
	Applied bool   `json:"applied"`
}

// ProcessedViewResponse is the filtered processed list.
type ProcessedViewResponse struct {
	Items   []models.Application `json:"items"`
	Total   int                  `json:"total"`
	Version uint64               `json:"version"`
	Filter  models.FilterState   `json:"filter"`
}
