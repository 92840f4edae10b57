package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fraudlens-api/internal/models"
)

func TestFilterQueryDefaults(t *testing.T) {
	filter, err := FilterQuery{}.ToFilterState()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultFilterState(), filter)
}

func TestFilterQueryToFilterState(t *testing.T) {
	lo, hi := 60, 90
	filter, err := FilterQuery{
		Search:   "maya",
		RiskMin:  &lo,
		RiskMax:  &hi,
		Statuses: []string{"approved,rejected", " escalated "},
		Stages:   []string{"financial-aid"},
		From:     "2026-04-01",
		To:       "2026-04-10T12:00:00Z",
	}.ToFilterState()
	require.NoError(t, err)

	assert.Equal(t, "maya", filter.Search)
	assert.Equal(t, [2]int{60, 90}, filter.RiskScore)
	assert.Equal(t, []models.ApplicationStatus{models.StatusApproved, models.StatusRejected, models.StatusEscalated}, filter.Statuses)
	assert.Equal(t, []models.ApplicationStage{models.StageFinancialAid}, filter.Stages)
	require.NotNil(t, filter.DateRange[0])
	require.NotNil(t, filter.DateRange[1])
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *filter.DateRange[0])
	assert.Equal(t, time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC), filter.DateRange[1].UTC())
}

func TestFilterQueryUnixSecondsAndOpenBounds(t *testing.T) {
	filter, err := FilterQuery{From: "1775001600"}.ToFilterState()
	require.NoError(t, err)
	require.NotNil(t, filter.DateRange[0])
	assert.Equal(t, int64(1775001600), filter.DateRange[0].Unix())
	assert.Nil(t, filter.DateRange[1])
}

func TestFilterQueryRejectsBadDates(t *testing.T) {
	_, err := FilterQuery{To: "last tuesday"}.ToFilterState()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to:")
}
