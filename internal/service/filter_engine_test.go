package service

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/noah-isme/fraudlens-api/internal/models"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func day(d int) time.Time { return time.Date(2026, 4, d, 0, 0, 0, 0, time.UTC) }

func sampleProcessed() []models.Application {
	return []models.Application{
		{ID: "1", StudentID: "STU-1001", Name: "Maya Lopez", Email: "maya@uni.edu", Stage: models.StageAdmissions,
			Status: models.StatusEscalated, RiskScore: intPtr(85), Timestamp: day(10).Add(15 * time.Hour)},
		{ID: "2", StudentID: "STU-1002", Name: "Jon Park", Email: "jon@uni.edu", Stage: models.StageFinancialAid,
			Status: models.StatusApproved, RiskScore: intPtr(40), Timestamp: day(9).Add(8 * time.Hour)},
		{ID: "3", StudentID: "STU-1003", Name: "Ana Ruiz", Email: "ana@college.org", Stage: models.StageFinancialAid,
			Status: models.StatusRejected, Timestamp: day(5)},
		{ID: "4", StudentID: "STU-1004", Name: "Lee Chen", Email: "lee@uni.edu", Stage: models.StageAdmissions,
			Status: models.StatusOnHold, RiskScore: intPtr(62)},
	}
}

func TestApplyFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter func(f *models.FilterState)
		want   []string
	}{
		{name: "default matches everything", filter: func(*models.FilterState) {}, want: []string{"1", "2", "3", "4"}},
		{name: "high risk range keeps unscored", filter: func(f *models.FilterState) { f.RiskScore = [2]int{80, 100} }, want: []string{"1", "3"}},
		{name: "inclusive range bounds", filter: func(f *models.FilterState) { f.RiskScore = [2]int{40, 62} }, want: []string{"2", "3", "4"}},
		{name: "search name case insensitive", filter: func(f *models.FilterState) { f.Search = "MAYA" }, want: []string{"1"}},
		{name: "search student id", filter: func(f *models.FilterState) { f.Search = "stu-1003" }, want: []string{"3"}},
		{name: "search email domain", filter: func(f *models.FilterState) { f.Search = "uni.edu" }, want: []string{"1", "2", "4"}},
		{name: "search stage", filter: func(f *models.FilterState) { f.Search = "financial" }, want: []string{"2", "3"}},
		{name: "search status", filter: func(f *models.FilterState) { f.Search = "onhold" }, want: []string{"4"}},
		{name: "search no match", filter: func(f *models.FilterState) { f.Search = "zzz" }, want: []string{}},
		{name: "status set", filter: func(f *models.FilterState) {
			f.Statuses = []models.ApplicationStatus{models.StatusRejected, models.StatusApproved}
		}, want: []string{"2", "3"}},
		{name: "stage set", filter: func(f *models.FilterState) {
			f.Stages = []models.ApplicationStage{models.StageAdmissions}
		}, want: []string{"1", "4"}},
		{name: "date lower bound drops missing timestamps", filter: func(f *models.FilterState) {
			f.DateRange[0] = timePtr(day(9))
		}, want: []string{"1", "2"}},
		{name: "date upper bound covers whole day", filter: func(f *models.FilterState) {
			f.DateRange[1] = timePtr(day(9))
		}, want: []string{"2", "3"}},
		{name: "date range both bounds", filter: func(f *models.FilterState) {
			f.DateRange = [2]*time.Time{timePtr(day(5)), timePtr(day(5))}
		}, want: []string{"3"}},
		{name: "clauses are and-ed", filter: func(f *models.FilterState) {
			f.Stages = []models.ApplicationStage{models.StageFinancialAid}
			f.RiskScore = [2]int{0, 50}
			f.Search = "jon"
		}, want: []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := models.DefaultFilterState()
			tt.filter(&filter)
			got := ids(ApplyFilter(sampleProcessed(), filter))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ApplyFilter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyFilterEmptyInput(t *testing.T) {
	filter := models.DefaultFilterState()
	filter.Search = "anything"
	got := ApplyFilter(nil, filter)
	if got == nil || len(got) != 0 {
		t.Fatalf("ApplyFilter(nil) = %v, want empty non-nil slice", got)
	}
}

func TestApplyFilterDefaultIsIdentity(t *testing.T) {
	input := sampleProcessed()
	got := ApplyFilter(input, models.DefaultFilterState())
	if diff := cmp.Diff(input, got); diff != "" {
		t.Errorf("default filter changed the list (-want +got):\n%s", diff)
	}
}

func TestApplyFilterIdempotent(t *testing.T) {
	filter := models.DefaultFilterState()
	filter.RiskScore = [2]int{30, 90}
	filter.Search = "uni"

	once := ApplyFilter(sampleProcessed(), filter)
	twice := ApplyFilter(once, filter)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("ApplyFilter is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestApplyFilterHighRiskScenario(t *testing.T) {
	processed := []models.Application{
		{ID: "high", RiskScore: intPtr(85), Status: models.StatusEscalated},
		{ID: "low", RiskScore: intPtr(40), Status: models.StatusApproved},
	}
	filter := models.FilterState{RiskScore: [2]int{80, 100}, Statuses: []models.ApplicationStatus{}, Stages: []models.ApplicationStage{}}

	got := ids(ApplyFilter(processed, filter))
	if diff := cmp.Diff([]string{"high"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFilterDoesNotMutateInput(t *testing.T) {
	input := sampleProcessed()
	before := ids(input)
	filter := models.DefaultFilterState()
	filter.Statuses = []models.ApplicationStatus{models.StatusApproved}
	_ = ApplyFilter(input, filter)
	if diff := cmp.Diff(before, ids(input)); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}
