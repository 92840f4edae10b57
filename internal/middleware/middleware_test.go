package middleware

import (
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

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/protected", handlers...)
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "admin", Role: models.RoleReviewer}}
	r := newRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer ").Code)

	w := serve(r, "bearer  token-1 ")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token-1", validator.seen)

	validator.err = appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer token-2").Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	validator := &stubValidator{err: appErrors.ErrUnauthorized}
	r := newRouter(OptionalJWT(validator))
	assert.Equal(t, http.StatusOK, serve(r, "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "Bearer broken").Code)
}

func TestRequireRoles(t *testing.T) {
	reviewer := &stubValidator{claims: &models.JWTClaims{UserID: "admin", Role: models.RoleReviewer}}
	assert.Equal(t, http.StatusOK, serve(newRouter(JWT(reviewer), RequireRoles(models.RoleReviewer)), "Bearer t").Code)

	guest := &stubValidator{claims: &models.JWTClaims{UserID: "guest", Role: models.Role("GUEST")}}
	assert.Equal(t, http.StatusForbidden, serve(newRouter(JWT(guest), RequireRoles(models.RoleReviewer)), "Bearer t").Code)

	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(RequireRoles(models.RoleReviewer)), "").Code)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/view", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "version", 7)
		c.JSON(http.StatusOK, gin.H{"meta": ExtractMeta(c)})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body.Meta["cache_hit"])
	assert.Equal(t, float64(7), body.Meta["version"])
}

func TestMetricsMiddlewareSkipsPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/applications", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/metrics", "/applications", "/applications"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}
