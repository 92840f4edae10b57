package handler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fraudlens-api/internal/models"
	"github.com/noah-isme/fraudlens-api/internal/service"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
)

type exportServiceMock struct {
	filter models.FilterState
	format models.ExportFormat
	path   string
	err    error
}

func (m *exportServiceMock) Export(ctx context.Context, filter models.FilterState, format models.ExportFormat) (*models.ExportResult, error) {
	m.filter = filter
	m.format = format
	return &models.ExportResult{ID: "exp-1", Format: format, Rows: 2, DownloadURL: "/api/v1/exports/download?token=t", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *exportServiceMock) Open(token string) (*service.ExportFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	file, err := os.Open(m.path)
	if err != nil {
		return nil, err
	}
	return &service.ExportFile{File: file, Name: filepath.Base(m.path), ContentType: "text/csv"}, nil
}

func TestExportHandlerCreate(t *testing.T) {
	mock := &exportServiceMock{}
	c, w := newContext(http.MethodPost, "/exports", []byte(`{"format":"csv","filter":{"riskScore":[80,100]}}`))

	NewExportHandler(mock, nil).Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.ExportFormatCSV, mock.format)
	assert.Equal(t, [2]int{80, 100}, mock.filter.RiskScore)

	mock = &exportServiceMock{}
	c, w = newContext(http.MethodPost, "/exports", []byte(`{"format":"pdf"}`))
	NewExportHandler(mock, nil).Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.DefaultFilterState(), mock.filter)
}

func TestExportHandlerCreateRejectsUnknownFormat(t *testing.T) {
	c, w := newContext(http.MethodPost, "/exports", []byte(`{"format":"xlsx"}`))
	NewExportHandler(&exportServiceMock{}, nil).Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.csv")
	require.NoError(t, os.WriteFile(path, []byte("ID,Name\n1,Maya\n"), 0o600))

	c, w := newContext(http.MethodGet, "/exports/download?token=abc", nil)
	NewExportHandler(&exportServiceMock{path: path}, nil).Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="processed.csv"`)
	assert.Equal(t, "ID,Name\n1,Maya\n", w.Body.String())
}

func TestExportHandlerDownloadErrors(t *testing.T) {
	c, w := newContext(http.MethodGet, "/exports/download", nil)
	NewExportHandler(&exportServiceMock{}, nil).Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(http.MethodGet, "/exports/download?token=abc", nil)
	NewExportHandler(&exportServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "download link expired")}, nil).Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newContext(http.MethodGet, "/exports/download?token=abc", nil)
	NewExportHandler(&exportServiceMock{err: errors.New("disk gone")}, nil).Download(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
