package dto

import "github.com/noah-isme/fraudlens-api/internal/models"

// SavePresetRequest names the filter to save as a preset.
type SavePresetRequest struct {
	Name   string             `json:"name" validate:"required,max=120"`
	Filter models.FilterState `json:"filter"`
}

// PresetListResponse lists saved filters in insertion order; Pinned repeats the pinned subset.
type PresetListResponse struct {
	Items  []models.SavedFilter `json:"items"`
	Pinned []models.SavedFilter `json:"pinned"`
}

// PresetActionResult reports whether a preset command took effect. Unknown ids
// are no-ops with Applied false.
type PresetActionResult struct {
	ID      string              `json:"id"`
	Applied bool                `json:"applied"`
	Preset  *models.SavedFilter `json:"preset,omitempty"`
}

// ExportRequest selects the format and the filter applied to the processed view.
type ExportRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Filter *models.FilterState `json:"filter"`
}
