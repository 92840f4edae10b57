package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OutcomeSource records which path produced an outcome.
type OutcomeSource string

const (
	OutcomeSourcePipeline OutcomeSource = "pipeline"
	OutcomeSourceDecision OutcomeSource = "decision"
)

// FlagList is persisted as a JSONB array.
type FlagList []string

// Value marshals the flags for persistence.
func (f FlagList) Value() (driver.Value, error) {
	if f == nil {
		f = FlagList{}
	}
	data, err := json.Marshal([]string(f))
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (f *FlagList) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for FlagList", value)
	}
	if len(data) == 0 {
		*f = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(f))
}

// ApplicationOutcome is an append-only audit row for a terminal review result.
type ApplicationOutcome struct {
	ID            int64         `db:"id" json:"id"`
	ApplicationID string        `db:"application_id" json:"applicationId"`
	StudentID     string        `db:"student_id" json:"studentId"`
	Stage         string        `db:"stage" json:"stage"`
	Status        string        `db:"status" json:"status"`
	RiskScore     *int          `db:"risk_score" json:"riskScore,omitempty"`
	RiskTier      string        `db:"risk_tier" json:"riskTier"`
	Flags         FlagList      `db:"flags" json:"flags"`
	Source        OutcomeSource `db:"source" json:"source"`
	RecordedAt    time.Time     `db:"recorded_at" json:"recordedAt"`
}

// OutcomeFromApplication builds an outcome row from a processed application.
func OutcomeFromApplication(app Application, source OutcomeSource) ApplicationOutcome {
	tier := ""
	if app.RiskScore != nil {
		tier = string(TierForScore(*app.RiskScore))
	}
	return ApplicationOutcome{
		ApplicationID: app.ID,
		StudentID:     app.StudentID,
		Stage:         string(app.Stage),
		Status:        string(app.Status),
		RiskScore:     app.RiskScore,
		RiskTier:      tier,
		Flags:         FlagList(app.Flags),
		Source:        source,
		RecordedAt:    app.UpdatedAt,
	}
}
