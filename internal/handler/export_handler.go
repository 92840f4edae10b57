package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/fraudlens-api/internal/dto"
	"github.com/noah-isme/fraudlens-api/internal/models"
	"github.com/noah-isme/fraudlens-api/internal/service"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
	"github.com/noah-isme/fraudlens-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, filter models.FilterState, format models.ExportFormat) (*models.ExportResult, error)
	Open(token string) (*service.ExportFile, error)
}

// ExportHandler renders the processed view to downloadable files.
type ExportHandler struct {
	service   exportService
	validator *validator.Validate
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(svc exportService, validate *validator.Validate) *ExportHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ExportHandler{service: svc, validator: validate}
}

// Create godoc
// @Summary Export the filtered processed view
// @Description Renders CSV or PDF and returns a signed download URL
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	filter := models.DefaultFilterState()
	if req.Filter != nil {
		filter = *req.Filter
	}
	result, err := h.service.Export(c.Request.Context(), filter, req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close()

	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file.File)
}
