package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/fraudlens-api/internal/handler"
	"github.com/noah-isme/fraudlens-api/internal/models"
	"github.com/noah-isme/fraudlens-api/internal/repository"
	"github.com/noah-isme/fraudlens-api/internal/service"
	"github.com/noah-isme/fraudlens-api/pkg/storage"
)

type testServer struct {
	router http.Handler
	engine *service.ProcessingEngine
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := service.NewMetricsService()
	engine := service.NewProcessingEngine(service.ProcessingEngineConfig{
		Scorer:  service.ScorerFunc(func(models.Application) int { return 85 }),
		Metrics: metrics,
	})
	source := service.NewSourceService(nil, "", "", nil)
	apps := service.NewApplicationService(engine, source, nil, nil)
	_, err := apps.Reload(context.Background())
	require.NoError(t, err)

	filters := service.NewFilterService(engine, nil, 0, nil)
	presets := service.NewPresetService(repository.NewMemoryKVStore(), "", nil)

	exportStore, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exports := service.NewExportService(filters, exportStore, storage.NewSignedURLSigner("secret", time.Hour),
		service.ExportConfig{APIPrefix: "/api/v1"}, metrics, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := service.NewAuthService(nil, nil, service.AuthConfig{
		AccessTokenSecret: "jwt-secret",
		Issuer:            "fraudlens",
		AdminEmail:        "admin@fraudlens.local",
		AdminPasswordHash: string(hash),
	})

	opts := Options{
		APIPrefix:     "/api/v1",
		Metrics:       metrics,
		Applications:  handler.NewApplicationHandler(apps, nil),
		Filters:       handler.NewFilterHandler(filters, presets, nil),
		Exports:       handler.NewExportHandler(exports, nil),
		AuthHandler:   handler.NewAuthHandler(auth),
		Observability: handler.NewMetricsHandler(metrics, nil),
	}
	if withAuth {
		opts.Auth = auth
	}
	return &testServer{router: New(opts), engine: engine}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestRouterHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, false)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/ready", "", nil).Code)

	w := srv.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fraudlens_queue_depth")
}

func TestRouterQueueFlow(t *testing.T) {
	srv := newTestServer(t, false)

	var snapshot models.QueueSnapshot
	dataOf(t, srv.do(t, http.MethodGet, "/api/v1/applications", "", nil), &snapshot)
	require.NotEmpty(t, snapshot.Queue)
	first := snapshot.Queue[0].ID

	w := srv.do(t, http.MethodPost, "/api/v1/applications/"+first+"/process", "", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	w = srv.do(t, http.MethodPost, "/api/v1/applications/"+first+"/process", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "second trigger is a no-op")

	srv.engine.Advance(time.Now().Add(time.Minute))

	var view struct {
		Items []models.Application `json:"items"`
		Total int                  `json:"total"`
	}
	dataOf(t, srv.do(t, http.MethodGet, "/api/v1/applications/processed?riskMin=80", "", nil), &view)
	require.Equal(t, 3, view.Total, "two seeded high-risk records plus the new completion")
	assert.Equal(t, first, view.Items[0].ID, "the newest completion sorts first")

	w = srv.do(t, http.MethodPatch, "/api/v1/applications/"+first+"/decision", "", map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusOK, w.Code)

	queued := snapshot.Queue[1].ID
	w = srv.do(t, http.MethodPatch, "/api/v1/applications/"+queued+"/decision", "", map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouterPresetsAndExports(t *testing.T) {
	srv := newTestServer(t, false)

	var list struct {
		Items  []models.SavedFilter `json:"items"`
		Pinned []models.SavedFilter `json:"pinned"`
	}
	dataOf(t, srv.do(t, http.MethodGet, "/api/v1/filters", "", nil), &list)
	assert.Len(t, list.Items, 2)
	assert.Len(t, list.Pinned, 2)

	w := srv.do(t, http.MethodPost, "/api/v1/filters", "", map[string]interface{}{
		"name":   "Approved",
		"filter": map[string]interface{}{"statuses": []string{"approved"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var saved models.SavedFilter
	dataOf(t, w, &saved)

	var action struct {
		Applied bool `json:"applied"`
	}
	w = srv.do(t, http.MethodPost, "/api/v1/filters/"+saved.ID+"/pin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataOf(t, w, &action)
	assert.True(t, action.Applied)

	w = srv.do(t, http.MethodDelete, "/api/v1/filters/"+saved.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataOf(t, w, &action)
	assert.True(t, action.Applied)

	w = srv.do(t, http.MethodDelete, "/api/v1/filters/"+saved.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataOf(t, w, &action)
	assert.False(t, action.Applied, "deleting twice is a no-op")

	w = srv.do(t, http.MethodPost, "/api/v1/exports", "", map[string]string{"format": "csv"})
	require.Equal(t, http.StatusCreated, w.Code)
	var result models.ExportResult
	dataOf(t, w, &result)

	download := srv.do(t, http.MethodGet, result.DownloadURL, "", nil)
	assert.Equal(t, http.StatusOK, download.Code)
	assert.Equal(t, "text/csv", download.Header().Get("Content-Type"))
	assert.Contains(t, download.Body.String(), "Student ID")
}

func TestRouterRequiresTokenWhenAuthEnabled(t *testing.T) {
	srv := newTestServer(t, true)

	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/applications", "", nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health", "", nil).Code)

	w := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "admin@fraudlens.local", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	var login models.LoginResponse
	dataOf(t, w, &login)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/applications", login.AccessToken, nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil).Code)
	assert.Equal(t, http.StatusAccepted, srv.do(t, http.MethodPost, "/api/v1/applications/process-batch", login.AccessToken, nil).Code)
}
