package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/fraudlens-api/internal/handler"
	"github.com/noah-isme/fraudlens-api/internal/middleware"
	"github.com/noah-isme/fraudlens-api/internal/models"
	"github.com/noah-isme/fraudlens-api/internal/service"
	"github.com/noah-isme/fraudlens-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/fraudlens-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/fraudlens-api/pkg/middleware/requestid"
)

// Options assembles the HTTP surface.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService

	// Auth is nil when authentication is disabled.
	Auth middleware.TokenValidator

	Applications *handler.ApplicationHandler
	Filters      *handler.FilterHandler
	// Exports is nil when exports are disabled.
	Exports       *handler.ExportHandler
	AuthHandler   *handler.AuthHandler
	Observability *handler.MetricsHandler
}

// New builds the gin engine with global middleware and every route.
func New(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", opts.Observability.Health)
	r.GET("/ready", opts.Observability.Ready)
	r.GET("/metrics", opts.Observability.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	if opts.AuthHandler != nil {
		api.POST("/auth/login", opts.AuthHandler.Login)
	}

	protected := api.Group("")
	reviewer := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if opts.Auth == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{middleware.RequireRoles(models.RoleReviewer), h}
	}
	if opts.Auth != nil {
		protected.Use(middleware.JWT(opts.Auth))
		if opts.AuthHandler != nil {
			protected.GET("/auth/me", opts.AuthHandler.Me)
		}
	}
	protected.GET("/metrics/summary", opts.Observability.Summary)

	apps := protected.Group("/applications")
	apps.GET("", opts.Applications.Snapshot)
	apps.GET("/processed", opts.Filters.Processed)
	apps.POST("/processed/search", opts.Filters.Search)
	apps.POST("/reload", reviewer(opts.Applications.Reload)...)
	apps.POST("/process-batch", reviewer(opts.Applications.ProcessBatch)...)
	apps.POST("/:id/process", reviewer(opts.Applications.ProcessOne)...)
	apps.PATCH("/:id/decision", reviewer(opts.Applications.Decide)...)

	filters := protected.Group("/filters")
	filters.GET("", opts.Filters.ListPresets)
	filters.POST("", reviewer(opts.Filters.SavePreset)...)
	filters.DELETE("/:id", reviewer(opts.Filters.DeletePreset)...)
	filters.POST("/:id/pin", reviewer(opts.Filters.TogglePin)...)

	if opts.Exports != nil {
		protected.POST("/exports", reviewer(opts.Exports.Create)...)
		// The signed token authorises the download.
		api.GET("/exports/download", opts.Exports.Download)
	}

	return r
}
