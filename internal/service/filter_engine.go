package service

import (
	"strings"
	"time"

	"github.com/noah-isme/fraudlens-api/internal/models"
)

// ApplyFilter returns the applications matching every clause of filter, in input order.
// It never modifies its input.
func ApplyFilter(processed []models.Application, filter models.FilterState) []models.Application {
	out := make([]models.Application, 0, len(processed))
	if len(processed) == 0 {
		return out
	}

	m := newFilterMatcher(filter)
	for _, app := range processed {
		if m.match(app) {
			out = append(out, app)
		}
	}
	return out
}

type filterMatcher struct {
	needle   string
	lo, hi   int
	statuses map[models.ApplicationStatus]struct{}
	stages   map[models.ApplicationStage]struct{}
	from, to *time.Time
}

func newFilterMatcher(filter models.FilterState) filterMatcher {
	m := filterMatcher{
		needle: strings.ToLower(strings.TrimSpace(filter.Search)),
		lo:     filter.RiskScore[0],
		hi:     filter.RiskScore[1],
	}
	if len(filter.Statuses) > 0 {
		m.statuses = make(map[models.ApplicationStatus]struct{}, len(filter.Statuses))
		for _, s := range filter.Statuses {
			m.statuses[s] = struct{}{}
		}
	}
	if len(filter.Stages) > 0 {
		m.stages = make(map[models.ApplicationStage]struct{}, len(filter.Stages))
		for _, s := range filter.Stages {
			m.stages[s] = struct{}{}
		}
	}
	if filter.DateRange[0] != nil {
		from := *filter.DateRange[0]
		m.from = &from
	}
	if filter.DateRange[1] != nil {
		// The upper bound covers its whole day.
		to := filter.DateRange[1].Add(24 * time.Hour)
		m.to = &to
	}
	return m
}

func (m filterMatcher) match(app models.Application) bool {
	return m.matchSearch(app) &&
		m.matchScore(app) &&
		m.matchStatus(app) &&
		m.matchStage(app) &&
		m.matchDate(app)
}

func (m filterMatcher) matchSearch(app models.Application) bool {
	if m.needle == "" {
		return true
	}
	for _, field := range []string{app.Name, app.StudentID, app.Email, string(app.Stage), string(app.Status)} {
		if strings.Contains(strings.ToLower(field), m.needle) {
			return true
		}
	}
	return false
}

// Applications without a score are not excluded by the range.
func (m filterMatcher) matchScore(app models.Application) bool {
	if app.RiskScore == nil {
		return true
	}
	return *app.RiskScore >= m.lo && *app.RiskScore <= m.hi
}

func (m filterMatcher) matchStatus(app models.Application) bool {
	if m.statuses == nil {
		return true
	}
	_, ok := m.statuses[app.Status]
	return ok
}

func (m filterMatcher) matchStage(app models.Application) bool {
	if m.stages == nil {
		return true
	}
	_, ok := m.stages[app.Stage]
	return ok
}

func (m filterMatcher) matchDate(app models.Application) bool {
	if m.from == nil && m.to == nil {
		return true
	}
	if app.Timestamp.IsZero() {
		return false
	}
	if m.from != nil && app.Timestamp.Before(*m.from) {
		return false
	}
	if m.to != nil && !app.Timestamp.Before(*m.to) {
		return false
	}
	return true
}
