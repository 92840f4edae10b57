package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Risk score bounds accepted by a filter.
const (
	MinRiskScore = 0
	MaxRiskScore = 100
)

// FilterState is a declarative query over processed applications.
// DateRange bounds are nullable; nil means unbounded.
type FilterState struct {
	Search    string              `json:"search" validate:"max=200"`
	RiskScore [2]int              `json:"riskScore" validate:"dive,min=0,max=100"`
	Statuses  []ApplicationStatus `json:"statuses" validate:"dive,oneof=submitted processing processed approved rejected escalated onhold lowRisk in_review"`
	Stages    []ApplicationStage  `json:"stages" validate:"dive,oneof=admissions financial-aid"`
	DateRange [2]*time.Time       `json:"dateRange"`
}

// DefaultFilterState matches every application.
func DefaultFilterState() FilterState {
	return FilterState{
		RiskScore: [2]int{MinRiskScore, MaxRiskScore},
		Statuses:  []ApplicationStatus{},
		Stages:    []ApplicationStage{},
	}
}

// Normalized returns a copy with empty sets instead of nil, trimmed search and UTC dates.
func (f FilterState) Normalized() FilterState {
	out := f
	out.Search = strings.TrimSpace(f.Search)
	out.Statuses = append([]ApplicationStatus{}, f.Statuses...)
	out.Stages = append([]ApplicationStage{}, f.Stages...)
	for i, bound := range f.DateRange {
		if bound != nil {
			utc := bound.UTC()
			out.DateRange[i] = &utc
		}
	}
	return out
}

var filterValidator = validator.New()

// ErrInvalidFilter wraps every FilterState validation failure.
var ErrInvalidFilter = errors.New("invalid filter")

// Validate checks field ranges and set membership.
func (f FilterState) Validate() error {
	if err := filterValidator.Struct(f); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, describeValidation(err))
	}
	if f.RiskScore[0] > f.RiskScore[1] {
		return fmt.Errorf("%w: riskScore lower bound %d exceeds upper bound %d", ErrInvalidFilter, f.RiskScore[0], f.RiskScore[1])
	}
	if from, to := f.DateRange[0], f.DateRange[1]; from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("%w: dateRange start is after end", ErrInvalidFilter)
	}
	return nil
}

// NewFilterState validates and normalises a filter.
func NewFilterState(f FilterState) (FilterState, error) {
	normalized := f.Normalized()
	if err := normalized.Validate(); err != nil {
		return FilterState{}, err
	}
	return normalized, nil
}

// SavedFilter is a named, persisted FilterState ("preset").
type SavedFilter struct {
	ID       string      `json:"id" validate:"required"`
	Name     string      `json:"name" validate:"required"`
	Filter   FilterState `json:"filter"`
	IsPinned bool        `json:"isPinned"`
}

// Validate checks identity fields and the embedded filter.
func (s SavedFilter) Validate() error {
	if err := filterValidator.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, describeValidation(err))
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is blank", ErrInvalidFilter)
	}
	return s.Filter.Validate()
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// FilteredView is the processed collection narrowed by a FilterState.
type FilteredView struct {
	Items   []Application `json:"items"`
	Total   int           `json:"total"`
	Version uint64        `json:"version"`
}
