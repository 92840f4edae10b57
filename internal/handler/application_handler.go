package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/fraudlens-api/internal/dto"
	"github.com/noah-isme/fraudlens-api/internal/models"
	"github.com/noah-isme/fraudlens-api/internal/service"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
	"github.com/noah-isme/fraudlens-api/pkg/response"
)

type applicationService interface {
	Snapshot() models.QueueSnapshot
	Reload(ctx context.Context) (*service.ReloadSummary, error)
	ProcessOne(id string) bool
	ProcessBatch() bool
	Decide(id string, status models.ApplicationStatus) (*models.Application, error)
}

// ApplicationHandler exposes the review queue.
type ApplicationHandler struct {
	service   applicationService
	validator *validator.Validate
}

// NewApplicationHandler constructs an ApplicationHandler.
func NewApplicationHandler(svc applicationService, validate *validator.Validate) *ApplicationHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ApplicationHandler{service: svc, validator: validate}
}

// Snapshot godoc
// @Summary Queue snapshot
// @Description Queue, processed list and bulk progress
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) Snapshot(c *gin.Context) {
	snapshot := h.service.Snapshot()
	response.OK(c, snapshot, map[string]interface{}{"version": snapshot.Version})
}

// Reload godoc
// @Summary Reload applications
// @Description Replace queue and processed lists from the application source, abandoning in-flight work
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /applications/reload [post]
func (h *ApplicationHandler) Reload(c *gin.Context) {
	summary, err := h.service.Reload(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// ProcessOne godoc
// @Summary Process a single application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 202 {object} response.Envelope
// @Success 200 {object} response.Envelope "applied=false when the application is not idle in the queue"
// @Router /applications/{id}/process [post]
func (h *ApplicationHandler) ProcessOne(c *gin.Context) {
	id := c.Param("id")
	result := dto.ActionResult{ID: id, Applied: h.service.ProcessOne(id)}
	if result.Applied {
		response.Accepted(c, result)
		return
	}
	response.OK(c, result)
}

// ProcessBatch godoc
// @Summary Process every idle queued application
// @Tags Applications
// @Produce json
// @Success 202 {object} response.Envelope
// @Success 200 {object} response.Envelope "applied=false when a batch is running or nothing is idle"
// @Router /applications/process-batch [post]
func (h *ApplicationHandler) ProcessBatch(c *gin.Context) {
	result := dto.ActionResult{Applied: h.service.ProcessBatch()}
	if result.Applied {
		response.Accepted(c, result)
		return
	}
	response.OK(c, result)
}

// Decide godoc
// @Summary Record a review decision
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/decision [patch]
func (h *ApplicationHandler) Decide(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status is not a review decision"))
		return
	}
	app, err := h.service.Decide(c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}
