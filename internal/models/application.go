package models

import "time"

// ApplicationStage is the review track an application belongs to. Fixed at creation.
type ApplicationStage string

const (
	StageAdmissions   ApplicationStage = "admissions"
	StageFinancialAid ApplicationStage = "financial-aid"
)

// ApplicationStatus captures the review lifecycle of an application.
type ApplicationStatus string

const (
	StatusSubmitted  ApplicationStatus = "submitted"
	StatusProcessing ApplicationStatus = "processing"
	StatusProcessed  ApplicationStatus = "processed"
	StatusApproved   ApplicationStatus = "approved"
	StatusRejected   ApplicationStatus = "rejected"
	StatusEscalated  ApplicationStatus = "escalated"
	StatusOnHold     ApplicationStatus = "onhold"
	StatusLowRisk    ApplicationStatus = "lowRisk"
	StatusInReview   ApplicationStatus = "in_review"
)

var knownStatuses = map[ApplicationStatus]struct{}{
	StatusSubmitted: {}, StatusProcessing: {}, StatusProcessed: {}, StatusApproved: {},
	StatusRejected: {}, StatusEscalated: {}, StatusOnHold: {}, StatusLowRisk: {}, StatusInReview: {},
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Valid reports whether s is a known stage.
func (s ApplicationStage) Valid() bool {
	return s == StageAdmissions || s == StageFinancialAid
}

// DecisionStatuses are the outcomes a reviewer may set on a processed application.
var DecisionStatuses = []ApplicationStatus{
	StatusApproved, StatusRejected, StatusEscalated, StatusOnHold, StatusInReview, StatusLowRisk,
}

// IsDecision reports whether s may be set by a manual review decision.
func (s ApplicationStatus) IsDecision() bool {
	for _, d := range DecisionStatuses {
		if s == d {
			return true
		}
	}
	return false
}

// Application is one applicant's submission under review.
type Application struct {
	ID              string            `json:"id"`
	StudentID       string            `json:"studentId"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Stage           ApplicationStage  `json:"stage"`
	Status          ApplicationStatus `json:"status"`
	RiskScore       *int              `json:"riskScore,omitempty"`
	Flags           []string          `json:"flags,omitempty"`
	AIProcessing    bool              `json:"aiProcessing"`
	ProcessingStage *string           `json:"processingStage,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// RiskTier buckets a risk score.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Tier thresholds (inclusive lower bounds).
const (
	HighRiskThreshold   = 80
	MediumRiskThreshold = 60
)

// TierForScore derives the risk tier of a score.
func TierForScore(score int) RiskTier {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Flags attached to completed applications per tier.
var tierFlags = map[RiskTier][]string{
	RiskHigh:   {"Document inconsistency detected", "Unusual submission pattern"},
	RiskMedium: {"Minor data discrepancy"},
	RiskLow:    nil,
}

// FlagsForTier returns a fresh copy of the flag labels for tier.
func FlagsForTier(tier RiskTier) []string {
	src := tierFlags[tier]
	if len(src) == 0 {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// BulkProcessingStatus tracks progress of the active batch run.
type BulkProcessingStatus struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// QueueSnapshot is a read-only view of the processing engine state.
type QueueSnapshot struct {
	Queue                []Application        `json:"queue"`
	Processed            []Application        `json:"processed"`
	IsBulkProcessing     bool                 `json:"isBulkProcessing"`
	BulkProcessingStatus BulkProcessingStatus `json:"bulkProcessingStatus"`
	Version              uint64               `json:"version"`
	// Epoch identifies the engine instance; versions restart with each epoch.
	Epoch                string               `json:"epoch"`
}
