package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/noah-isme/fraudlens-api/internal/models"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
)

// DefaultPresetStorageKey is the key saved filters are persisted under.
const DefaultPresetStorageKey = "fraudlens.savedFilters"

// KeyValueStore persists opaque JSON documents by key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

var presetDocumentSchema = gojsonschema.NewStringLoader(`{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name", "filter", "isPinned"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "name": {"type": "string", "minLength": 1},
      "isPinned": {"type": "boolean"},
      "filter": {
        "type": "object",
        "required": ["search", "riskScore", "statuses", "stages", "dateRange"],
        "properties": {
          "search": {"type": "string"},
          "riskScore": {
            "type": "array", "minItems": 2, "maxItems": 2,
            "items": {"type": "integer", "minimum": 0, "maximum": 100}
          },
          "statuses": {"type": "array", "items": {"type": "string"}},
          "stages": {"type": "array", "items": {"type": "string"}},
          "dateRange": {
            "type": "array", "minItems": 2, "maxItems": 2,
            "items": {"type": ["string", "null"], "format": "date-time"}
          }
        }
      }
    }
  }
}`)

// DefaultPresets returns the built-in pinned presets used when nothing is persisted.
func DefaultPresets(newID func() string) []models.SavedFilter {
	highRisk := models.DefaultFilterState()
	highRisk.RiskScore = [2]int{models.HighRiskThreshold, models.MaxRiskScore}

	rejected := models.DefaultFilterState()
	rejected.Statuses = []models.ApplicationStatus{models.StatusRejected}

	return []models.SavedFilter{
		{ID: newID(), Name: "High Risk (80+)", Filter: highRisk, IsPinned: true},
		{ID: newID(), Name: "Rejected Applications", Filter: rejected, IsPinned: true},
	}
}

// PresetService manages named filter presets backed by a KeyValueStore.
type PresetService struct {
	store  KeyValueStore
	key    string
	logger *zap.Logger
	newID  func() string

	mu      sync.Mutex
	presets []models.SavedFilter
	loaded  bool
}

// NewPresetService constructs the service. Load must be called before use;
// otherwise the first operation loads lazily.
func NewPresetService(store KeyValueStore, key string, logger *zap.Logger) *PresetService {
	if key == "" {
		key = DefaultPresetStorageKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresetService{store: store, key: key, logger: logger, newID: uuid.NewString}
}

// Load reads the persisted presets, falling back to the built-in defaults when
// nothing is stored and replacing a corrupt document with them.
func (s *PresetService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *PresetService) loadLocked(ctx context.Context) error {
	raw, err := s.store.Get(ctx, s.key)
	switch {
	case errors.Is(err, appErrors.ErrStoreMissing):
		s.presets = DefaultPresets(s.newID)
		s.loaded = true
		s.logger.Info("saved filters initialised with defaults", zap.String("key", s.key))
		return s.persistLocked(ctx, s.presets)
	case err != nil:
		// The document may still be valid; keep it untouched and serve defaults.
		s.presets = DefaultPresets(s.newID)
		s.loaded = true
		s.logger.Error("saved filters unavailable, serving defaults", zap.String("key", s.key), zap.Error(err))
		return nil
	}

	presets, err := decodePresets(raw)
	if err != nil {
		s.logger.Warn("discarding malformed saved filters", zap.String("key", s.key), zap.Error(err))
		s.presets = DefaultPresets(s.newID)
		s.loaded = true
		return s.persistLocked(ctx, s.presets)
	}
	s.presets = presets
	s.loaded = true
	return nil
}

func (s *PresetService) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.loadLocked(ctx)
}

// List returns the presets in insertion order.
func (s *PresetService) List(ctx context.Context) ([]models.SavedFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}
	return clonePresets(s.presets), nil
}

// Save appends a new unpinned preset.
func (s *PresetService) Save(ctx context.Context, name string, filter models.FilterState) (*models.SavedFilter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	normalized, err := models.NewFilterState(filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}

	preset := models.SavedFilter{ID: s.newID(), Name: name, Filter: normalized, IsPinned: false}
	next := append(clonePresets(s.presets), preset)
	if err := s.commitLocked(ctx, next); err != nil {
		return nil, err
	}
	return &preset, nil
}

// Delete removes the preset with id. It reports false when no preset matched.
func (s *PresetService) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return false, err
	}

	next := make([]models.SavedFilter, 0, len(s.presets))
	for _, preset := range s.presets {
		if preset.ID != id {
			next = append(next, preset)
		}
	}
	if len(next) == len(s.presets) {
		return false, nil
	}
	if err := s.commitLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// TogglePin flips the pin of the preset with id. It returns nil when no preset matched.
func (s *PresetService) TogglePin(ctx context.Context, id string) (*models.SavedFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}

	next := clonePresets(s.presets)
	for i := range next {
		if next[i].ID != id {
			continue
		}
		next[i].IsPinned = !next[i].IsPinned
		if err := s.commitLocked(ctx, next); err != nil {
			return nil, err
		}
		updated := next[i]
		return &updated, nil
	}
	return nil, nil
}

func (s *PresetService) commitLocked(ctx context.Context, next []models.SavedFilter) error {
	if err := s.persistLocked(ctx, next); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist saved filters")
	}
	s.presets = next
	return nil
}

func (s *PresetService) persistLocked(ctx context.Context, presets []models.SavedFilter) error {
	payload, err := json.Marshal(presets)
	if err != nil {
		return fmt.Errorf("marshal saved filters: %w", err)
	}
	if err := s.store.Set(ctx, s.key, payload); err != nil {
		return fmt.Errorf("store saved filters: %w", err)
	}
	return nil
}

func decodePresets(raw []byte) ([]models.SavedFilter, error) {
	result, err := gojsonschema.Validate(presetDocumentSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse saved filters: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("saved filters failed schema validation: %v", errs)
	}

	var presets []models.SavedFilter
	if err := json.Unmarshal(raw, &presets); err != nil {
		return nil, fmt.Errorf("decode saved filters: %w", err)
	}
	seen := make(map[string]struct{}, len(presets))
	for i := range presets {
		if err := presets[i].Validate(); err != nil {
			return nil, fmt.Errorf("saved filter %q: %w", presets[i].ID, err)
		}
		if _, dup := seen[presets[i].ID]; dup {
			return nil, fmt.Errorf("duplicate saved filter id %q", presets[i].ID)
		}
		seen[presets[i].ID] = struct{}{}
		presets[i].Filter = presets[i].Filter.Normalized()
	}
	if presets == nil {
		presets = []models.SavedFilter{}
	}
	return presets, nil
}

func clonePresets(presets []models.SavedFilter) []models.SavedFilter {
	out := make([]models.SavedFilter, len(presets))
	copy(out, presets)
	return out
}
