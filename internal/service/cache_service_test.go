package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fraudlens-api/internal/models"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
)

type memoryCacheRepo struct {
	values  map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.values[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	r.deleted = append(r.deleted, pattern)
	return nil
}

func TestCacheServiceHitMissAccounting(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var view models.FilteredView
	hit, err := svc.Get(ctx, "view:a", &view)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "view:a", models.FilteredView{Total: 3, Version: 7}, 0))
	assert.Equal(t, time.Minute, repo.ttls["view:a"], "non-positive ttl falls back to the default")

	hit, err = svc.Get(ctx, "view:a", &view)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, view.Total)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)

	require.NoError(t, svc.Invalidate(ctx, "view:*"))
	assert.Equal(t, []string{"view:*"}, repo.deleted)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var dest map[string]int
	hit, err := svc.Get(context.Background(), "k", &dest)
	assert.False(t, hit)
	assert.EqualError(t, err, "connection reset")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.values)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	hit, err := nilSvc.Get(context.Background(), "k", new(int))
	assert.False(t, hit)
	assert.NoError(t, err)
}

func TestMetricsServiceSnapshot(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest("GET", "/api/v1/applications", 200, 20*time.Millisecond)
	metrics.ObserveHTTPRequest("GET", "/api/v1/applications", 200, 40*time.Millisecond)
	metrics.RecordCompletion(models.RiskHigh)
	metrics.RecordCompletion(models.RiskHigh)
	metrics.RecordCompletion(models.RiskLow)
	metrics.RecordBatchStart()

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, 2, snap.CompletionsByTier[models.RiskHigh])
	assert.Equal(t, 1, snap.CompletionsByTier[models.RiskLow])
	assert.Equal(t, uint64(1), snap.BatchRuns)

	var nilMetrics *MetricsService
	nilMetrics.RecordCompletion(models.RiskHigh)
	assert.Equal(t, models.SystemMetrics{}, nilMetrics.Snapshot())
}
