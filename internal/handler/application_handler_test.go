package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fraudlens-api/internal/models"
	"github.com/noah-isme/fraudlens-api/internal/service"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
)

type applicationServiceMock struct {
	snapshot  models.QueueSnapshot
	reload    *service.ReloadSummary
	reloadErr error
	processed map[string]bool
	batch     bool
	decided   models.ApplicationStatus
	decideErr error
}

func (m *applicationServiceMock) Snapshot() models.QueueSnapshot { return m.snapshot }

func (m *applicationServiceMock) Reload(ctx context.Context) (*service.ReloadSummary, error) {
	return m.reload, m.reloadErr
}

func (m *applicationServiceMock) ProcessOne(id string) bool { return m.processed[id] }

func (m *applicationServiceMock) ProcessBatch() bool { return m.batch }

func (m *applicationServiceMock) Decide(id string, status models.ApplicationStatus) (*models.Application, error) {
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	m.decided = status
	return &models.Application{ID: id, Status: status}, nil
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestApplicationHandlerSnapshot(t *testing.T) {
	mock := &applicationServiceMock{snapshot: models.QueueSnapshot{
		Queue:                []models.Application{{ID: "Q1", Status: models.StatusSubmitted}},
		Processed:            []models.Application{},
		IsBulkProcessing:     true,
		BulkProcessingStatus: models.BulkProcessingStatus{Processed: 1, Total: 3},
		Version:              4,
	}}
	c, w := newContext(http.MethodGet, "/applications", nil)

	NewApplicationHandler(mock, nil).Snapshot(c)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	var snapshot models.QueueSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	assert.True(t, snapshot.IsBulkProcessing)
	assert.Equal(t, 3, snapshot.BulkProcessingStatus.Total)
	assert.Equal(t, float64(4), env.Meta["version"])
}

func TestApplicationHandlerProcessOne(t *testing.T) {
	mock := &applicationServiceMock{processed: map[string]bool{"Q1": true}}
	handler := NewApplicationHandler(mock, nil)

	c, w := newContext(http.MethodPost, "/applications/Q1/process", nil)
	c.Params = gin.Params{{Key: "id", Value: "Q1"}}
	handler.ProcessOne(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"id":"Q1","applied":true}`, string(decodeEnvelope(t, w).Data))

	c, w = newContext(http.MethodPost, "/applications/Q9/process", nil)
	c.Params = gin.Params{{Key: "id", Value: "Q9"}}
	handler.ProcessOne(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"Q9","applied":false}`, string(decodeEnvelope(t, w).Data))
}

func TestApplicationHandlerProcessBatch(t *testing.T) {
	mock := &applicationServiceMock{batch: true}
	c, w := newContext(http.MethodPost, "/applications/process-batch", nil)
	NewApplicationHandler(mock, nil).ProcessBatch(c)
	assert.Equal(t, http.StatusAccepted, w.Code)

	mock.batch = false
	c, w = newContext(http.MethodPost, "/applications/process-batch", nil)
	NewApplicationHandler(mock, nil).ProcessBatch(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"applied":false}`, string(decodeEnvelope(t, w).Data))
}

func TestApplicationHandlerReload(t *testing.T) {
	mock := &applicationServiceMock{reload: &service.ReloadSummary{Origin: service.SourceOriginEmbedded, Queue: 5, Processed: 5}}
	c, w := newContext(http.MethodPost, "/applications/reload", nil)
	NewApplicationHandler(mock, nil).Reload(c)
	assert.Equal(t, http.StatusOK, w.Code)

	mock.reloadErr = appErrors.Clone(appErrors.ErrSourceUnavailable, "failed to load applications")
	c, w = newContext(http.MethodPost, "/applications/reload", nil)
	NewApplicationHandler(mock, nil).Reload(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestApplicationHandlerDecide(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "approved", body: `{"status":"approved"}`, status: http.StatusOK},
		{name: "malformed body", body: `{`, status: http.StatusBadRequest},
		{name: "not a decision", body: `{"status":"processing"}`, status: http.StatusBadRequest},
		{name: "unknown application", body: `{"status":"rejected"}`, err: appErrors.Clone(appErrors.ErrNotFound, "application not found"), status: http.StatusNotFound},
		{name: "still queued", body: `{"status":"rejected"}`, err: appErrors.Clone(appErrors.ErrConflict, "application has not been processed"), status: http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &applicationServiceMock{decideErr: tc.err}
			c, w := newContext(http.MethodPatch, "/applications/P1/decision", []byte(tc.body))
			c.Params = gin.Params{{Key: "id", Value: "P1"}}

			NewApplicationHandler(mock, nil).Decide(c)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, models.StatusApproved, mock.decided)
			}
		})
	}
}
