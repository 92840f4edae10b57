package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fraudlens-api/internal/models"
	"github.com/noah-isme/fraudlens-api/pkg/httpclient"
)

//go:embed data/fallback_applications.json
var embeddedApplications []byte

// Source origins reported by LoadResult.
const (
	SourceOriginRemote   = "remote"
	SourceOriginFile     = "fallback-file"
	SourceOriginEmbedded = "embedded"
)

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// RawApplication is the upstream record shape before normalisation.
type RawApplication struct {
	ID              flexString `json:"id"`
	StudentID       flexString `json:"student_id"`
	StudentIDCamel  flexString `json:"studentId"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Stage           string     `json:"stage"`
	ApplicationType string     `json:"application_type"`
	Status          string     `json:"status"`
	FraudScore      *struct {
		Overall *float64 `json:"overall"`
	} `json:"fraud_score"`
	Flags       []string `json:"flags"`
	SubmittedAt string   `json:"submitted_at"`
	CreatedAt   string   `json:"created_at"`
	Timestamp   string   `json:"timestamp"`
	UpdatedAt   string   `json:"updated_at"`
}

// LoadResult carries normalised collections and where they came from.
type LoadResult struct {
	Queue     []models.Application
	Processed []models.Application
	Origin    string
	Skipped   int
}

// SourceService loads applications from the remote feed with static fallbacks.
type SourceService struct {
	client       *httpclient.Client
	url          string
	fallbackPath string
	logger       *zap.Logger
	now          func() time.Time
}

// NewSourceService constructs the loader. An empty url skips the remote fetch.
func NewSourceService(client *httpclient.Client, url, fallbackPath string, logger *zap.Logger) *SourceService {
	if client == nil {
		client = httpclient.NewClient(5 * time.Second)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourceService{client: client, url: url, fallbackPath: fallbackPath, logger: logger, now: time.Now}
}

// Load returns normalised queue and processed collections. Remote failures fall
// back to the configured file, then to the embedded dataset.
func (s *SourceService) Load(ctx context.Context) (*LoadResult, error) {
	if s.url != "" {
		raws, err := s.fetchRemote(ctx)
		if err == nil {
			return s.normalise(raws, SourceOriginRemote), nil
		}
		s.logger.Warn("application source unavailable, using fallback", zap.String("url", s.url), zap.Error(err))
	}

	if s.fallbackPath != "" {
		data, err := os.ReadFile(s.fallbackPath)
		if err == nil {
			raws, perr := parseRawApplications(data)
			if perr == nil {
				return s.normalise(raws, SourceOriginFile), nil
			}
			err = perr
		}
		s.logger.Warn("fallback dataset unreadable, using embedded data", zap.String("path", s.fallbackPath), zap.Error(err))
	}

	raws, err := parseRawApplications(embeddedApplications)
	if err != nil {
		return nil, fmt.Errorf("parse embedded applications: %w", err)
	}
	return s.normalise(raws, SourceOriginEmbedded), nil
}

func (s *SourceService) fetchRemote(ctx context.Context) ([]RawApplication, error) {
	body, err := s.client.GetBody(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return parseRawApplications(body)
}

// parseRawApplications accepts {"applications": [...]} or a bare array.
func parseRawApplications(data []byte) ([]RawApplication, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if trimmed[0] == '[' {
		var raws []RawApplication
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("decode application array: %w", err)
		}
		return raws, nil
	}
	var envelope struct {
		Applications *[]RawApplication `json:"applications"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode application envelope: %w", err)
	}
	if envelope.Applications == nil {
		return nil, fmt.Errorf("document has no applications field")
	}
	return *envelope.Applications, nil
}

func (s *SourceService) normalise(raws []RawApplication, origin string) *LoadResult {
	result := &LoadResult{
		Queue:     []models.Application{},
		Processed: []models.Application{},
		Origin:    origin,
	}
	now := s.now().UTC()
	seen := make(map[string]struct{}, len(raws))

	for i, raw := range raws {
		app, queued, ok := normaliseApplication(raw, i, now)
		if !ok {
			result.Skipped++
			s.logger.Warn("skipping application with unknown status",
				zap.String("id", string(raw.ID)), zap.String("status", raw.Status))
			continue
		}
		if _, dup := seen[app.ID]; dup {
			result.Skipped++
			s.logger.Warn("skipping duplicate application", zap.String("id", app.ID))
			continue
		}
		seen[app.ID] = struct{}{}
		if queued {
			result.Queue = append(result.Queue, app)
		} else {
			result.Processed = append(result.Processed, app)
		}
	}
	sortByUpdatedDesc(result.Processed)

	s.logger.Info("applications normalised",
		zap.String("origin", origin),
		zap.Int("queue", len(result.Queue)),
		zap.Int("processed", len(result.Processed)),
		zap.Int("skipped", result.Skipped),
	)
	return result
}

func normaliseApplication(raw RawApplication, index int, now time.Time) (models.Application, bool, bool) {
	status := strings.TrimSpace(strings.ToLower(raw.Status))
	queued := false
	switch status {
	case "submitted", "pending":
		status = string(models.StatusSubmitted)
		queued = true
	case "inreview", "in-review":
		status = string(models.StatusInReview)
	case "lowrisk", "low_risk":
		status = string(models.StatusLowRisk)
	case "on_hold", "on-hold":
		status = string(models.StatusOnHold)
	}
	appStatus := models.ApplicationStatus(status)
	if !appStatus.Valid() || appStatus == models.StatusProcessing {
		return models.Application{}, false, false
	}

	id := strings.TrimSpace(string(raw.ID))
	if id == "" {
		id = "app-" + strconv.Itoa(index+1)
	}
	studentID := strings.TrimSpace(string(raw.StudentID))
	if studentID == "" {
		studentID = strings.TrimSpace(string(raw.StudentIDCamel))
	}
	if studentID == "" {
		studentID = id
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = "Unknown applicant"
	}
	email := strings.TrimSpace(raw.Email)
	if email == "" {
		email = "unknown@fraudlens.local"
	}

	submitted := firstTime(now, raw.SubmittedAt, raw.CreatedAt, raw.Timestamp)
	updated := firstTime(submitted, raw.UpdatedAt)

	app := models.Application{
		ID:        id,
		StudentID: studentID,
		Name:      name,
		Email:     email,
		Stage:     normaliseStage(raw.Stage, raw.ApplicationType),
		Status:    appStatus,
		Timestamp: submitted,
		UpdatedAt: updated,
	}
	if !queued {
		if raw.FraudScore != nil && raw.FraudScore.Overall != nil {
			score := scaleFraudScore(*raw.FraudScore.Overall)
			app.RiskScore = &score
		}
		if len(raw.Flags) > 0 {
			app.Flags = append([]string(nil), raw.Flags...)
		}
	}
	return app, queued, true
}

func normaliseStage(values ...string) models.ApplicationStage {
	for _, value := range values {
		switch strings.TrimSpace(strings.ToLower(value)) {
		case "financial-aid", "financial_aid", "financialaid", "financial aid":
			return models.StageFinancialAid
		case "admissions", "admission":
			return models.StageAdmissions
		}
	}
	return models.StageAdmissions
}

// scaleFraudScore maps a 0–1 fraction or a 0–100 score onto an integer 0–100.
func scaleFraudScore(overall float64) int {
	if math.IsNaN(overall) || overall < 0 {
		return 0
	}
	if overall <= 1 {
		overall *= 100
	}
	score := int(math.Round(overall))
	if score > models.MaxRiskScore {
		score = models.MaxRiskScore
	}
	return score
}

func firstTime(fallback time.Time, values ...string) time.Time {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t.UTC()
			}
		}
	}
	return fallback
}
