package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/fraudlens-api/internal/dto"
	"github.com/noah-isme/fraudlens-api/internal/middleware"
	"github.com/noah-isme/fraudlens-api/internal/models"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
	"github.com/noah-isme/fraudlens-api/pkg/response"
)

type filterService interface {
	Apply(ctx context.Context, filter models.FilterState) (*models.FilteredView, bool, error)
}

type presetService interface {
	List(ctx context.Context) ([]models.SavedFilter, error)
	Save(ctx context.Context, name string, filter models.FilterState) (*models.SavedFilter, error)
	Delete(ctx context.Context, id string) (bool, error)
	TogglePin(ctx context.Context, id string) (*models.SavedFilter, error)
}

// FilterHandler serves the filtered processed view and saved filter presets.
type FilterHandler struct {
	filters   filterService
	presets   presetService
	validator *validator.Validate
}

// NewFilterHandler constructs a FilterHandler.
func NewFilterHandler(filters filterService, presets presetService, validate *validator.Validate) *FilterHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &FilterHandler{filters: filters, presets: presets, validator: validate}
}

// Processed godoc
// @Summary Filtered processed applications
// @Tags Filters
// @Produce json
// @Param search query string false "Case-insensitive match on name, email or student ID"
// @Param riskMin query int false "Lower risk score bound (0-100)"
// @Param riskMax query int false "Upper risk score bound (0-100)"
// @Param status query []string false "Status set (repeat or comma separate)"
// @Param stage query []string false "Stage set (repeat or comma separate)"
// @Param from query string false "Submitted on or after (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Submitted on or before, inclusive of the whole day"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/processed [get]
func (h *FilterHandler) Processed(c *gin.Context) {
	var query dto.FilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter query"))
		return
	}
	filter, err := query.ToFilterState()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}
	h.respondWithView(c, filter)
}

// Search godoc
// @Summary Filter processed applications with a JSON filter
// @Tags Filters
// @Accept json
// @Produce json
// @Param payload body models.FilterState true "Filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/processed/search [post]
func (h *FilterHandler) Search(c *gin.Context) {
	filter := models.DefaultFilterState()
	if err := c.ShouldBindJSON(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter payload"))
		return
	}
	h.respondWithView(c, filter)
}

func (h *FilterHandler) respondWithView(c *gin.Context, filter models.FilterState) {
	view, hit, err := h.filters.Apply(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetMeta(c, "version", view.Version)
	response.OK(c, dto.ProcessedViewResponse{
		Items:   view.Items,
		Total:   view.Total,
		Version: view.Version,
		Filter:  filter.Normalized(),
	}, middleware.ExtractMeta(c))
}

// ListPresets godoc
// @Summary List saved filters
// @Tags Filters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /filters [get]
func (h *FilterHandler) ListPresets(c *gin.Context) {
	presets, err := h.presets.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	pinned := make([]models.SavedFilter, 0, len(presets))
	for _, preset := range presets {
		if preset.IsPinned {
			pinned = append(pinned, preset)
		}
	}
	response.OK(c, dto.PresetListResponse{Items: presets, Pinned: pinned})
}

// SavePreset godoc
// @Summary Save the filter as a named preset
// @Tags Filters
// @Accept json
// @Produce json
// @Param payload body dto.SavePresetRequest true "Preset payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /filters [post]
func (h *FilterHandler) SavePreset(c *gin.Context) {
	req := dto.SavePresetRequest{Filter: models.DefaultFilterState()}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preset payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "name is required"))
		return
	}
	preset, err := h.presets.Save(c.Request.Context(), req.Name, req.Filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, preset)
}

// DeletePreset godoc
// @Summary Delete a saved filter
// @Tags Filters
// @Description Unknown ids are a no-op reported as applied=false.
// @Produce json
// @Param id path string true "Preset ID"
// @Success 200 {object} response.Envelope{data=dto.PresetActionResult}
// @Router /filters/{id} [delete]
func (h *FilterHandler) DeletePreset(c *gin.Context) {
	id := c.Param("id")
	removed, err := h.presets.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.PresetActionResult{ID: id, Applied: removed})
}

// TogglePin godoc
// @Summary Pin or unpin a saved filter
// @Tags Filters
// @Description Unknown ids are a no-op reported as applied=false.
// @Produce json
// @Param id path string true "Preset ID"
// @Success 200 {object} response.Envelope{data=dto.PresetActionResult}
// @Router /filters/{id}/pin [post]
func (h *FilterHandler) TogglePin(c *gin.Context) {
	id := c.Param("id")
	preset, err := h.presets.TogglePin(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.PresetActionResult{ID: id, Applied: preset != nil, Preset: preset})
}
