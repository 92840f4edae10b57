package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fraudlens-api/internal/models"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
)

// FilterCachePattern matches every memoised filter view.
const FilterCachePattern = "fraudlens:filter:*"

// SnapshotProvider exposes the processing engine state.
type SnapshotProvider interface {
	Snapshot() models.QueueSnapshot
}

// FilterService evaluates filters against the current processed collection.
type FilterService struct {
	source SnapshotProvider
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewFilterService constructs the service. cache may be nil.
func NewFilterService(source SnapshotProvider, cache *CacheService, ttl time.Duration, logger *zap.Logger) *FilterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilterService{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Apply validates filter and returns the matching processed applications.
// Results are memoised per (state version, filter).
func (s *FilterService) Apply(ctx context.Context, filter models.FilterState) (*models.FilteredView, bool, error) {
	normalized, err := models.NewFilterState(filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	snapshot := s.source.Snapshot()
	key, err := filterCacheKey(snapshot.Epoch, snapshot.Version, normalized)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash filter")
	}

	if s.cache.Enabled() {
		var cached models.FilteredView
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Debug("filter cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return &cached, true, nil
		}
	}

	items := ApplyFilter(snapshot.Processed, normalized)
	view := &models.FilteredView{Items: items, Total: len(items), Version: snapshot.Version}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, view, s.ttl); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("filter cache store failed", zap.String("key", key), zap.Error(err))
		}
	}
	return view, false, nil
}

// Invalidate drops every memoised view.
func (s *FilterService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, FilterCachePattern)
}

// filterCacheKey scopes the memo to one engine instance and state version.
func filterCacheKey(epoch string, version uint64, filter models.FilterState) (string, error) {
	payload, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("fraudlens:filter:%s:v%d:%s", epoch, version, hex.EncodeToString(sum[:])), nil
}
