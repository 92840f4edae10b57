package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/fraudlens-api/api/swagger"
	"github.com/noah-isme/fraudlens-api/internal/handler"
	"github.com/noah-isme/fraudlens-api/internal/repository"
	"github.com/noah-isme/fraudlens-api/internal/router"
	"github.com/noah-isme/fraudlens-api/internal/service"
	"github.com/noah-isme/fraudlens-api/pkg/cache"
	"github.com/noah-isme/fraudlens-api/pkg/config"
	"github.com/noah-isme/fraudlens-api/pkg/database"
	"github.com/noah-isme/fraudlens-api/pkg/httpclient"
	"github.com/noah-isme/fraudlens-api/pkg/jobs"
	"github.com/noah-isme/fraudlens-api/pkg/logger"
	"github.com/noah-isme/fraudlens-api/pkg/storage"
)

// @title FraudLens API
// @version 1.0.0
// @description Review queue processing and filtered views for application fraud screening
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
	logr.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	var db *sqlx.DB
	if cfg.Database.Enabled {
		conn, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()
		if err := database.Migrate(ctx, conn); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		db = conn
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		redisClient = client
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	engine := service.NewProcessingEngine(service.ProcessingEngineConfig{
		StageInterval:   cfg.Processing.StageInterval,
		CompletionDelay: cfg.Processing.CompletionDelay,
		BatchStagger:    cfg.Processing.BatchStagger,
		BulkGrace:       cfg.Processing.BulkGrace,
		TickInterval:    cfg.Processing.TickInterval,
		Scorer:          service.NewRandomScorer(cfg.Processing.ScorerSeed),
		Metrics:         metrics,
		Logger:          logr.Named("engine"),
	})
	filterSvc := service.NewFilterService(engine, cacheSvc, cfg.Cache.TTL, logr)

	var outcomeQueue *jobs.Queue
	if cfg.Outcomes.Enabled && db != nil {
		outcomes := service.NewOutcomeService(repository.NewOutcomeRepository(db), filterSvc, metrics, logr)
		outcomeQueue = jobs.NewQueue("outcomes", outcomes.Handle, jobs.QueueConfig{
			Workers:    cfg.Outcomes.Workers,
			MaxRetries: cfg.Outcomes.MaxRetries,
			RetryDelay: cfg.Outcomes.RetryInterval,
			Logger:     logr,
		})
		outcomes.AttachQueue(outcomeQueue)
		engine.SetOutcomeSink(outcomes)
	} else if cfg.Outcomes.Enabled {
		logr.Warn("outcome log requires DB_ENABLED; recorder disabled")
	}

	source := service.NewSourceService(httpclient.NewClient(cfg.Source.Timeout), cfg.Source.URL, cfg.Source.FallbackPath, logr)
	apps := service.NewApplicationService(engine, source, filterSvc, logr)
	if cfg.Processing.LoadOnStart {
		summary, err := apps.Reload(ctx)
		if err != nil {
			return fmt.Errorf("initial load: %w", err)
		}
		logr.Info("applications loaded", zap.String("origin", summary.Origin), zap.Int("queue", summary.Queue), zap.Int("processed", summary.Processed))
	}

	kv, err := presetStore(cfg, db, redisClient)
	if err != nil {
		return err
	}
	presets := service.NewPresetService(kv, cfg.Presets.StorageKey, logr)
	if err := presets.Load(ctx); err != nil {
		logr.Warn("saved filters could not be initialised", zap.Error(err))
	}

	var exportSvc *service.ExportService
	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			return fmt.Errorf("init export storage: %w", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(filterSvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, metrics, logr)
		exportHandler = handler.NewExportHandler(exportSvc, validate)
	}

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AdminEmail:        cfg.Auth.AdminEmail,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
	})

	checks := map[string]handler.ReadinessCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	opts := router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Applications:   handler.NewApplicationHandler(apps, validate),
		Filters:        handler.NewFilterHandler(filterSvc, presets, validate),
		Exports:        exportHandler,
		AuthHandler:    handler.NewAuthHandler(authSvc),
		Observability:  handler.NewMetricsHandler(metrics, checks),
	}
	if cfg.Auth.Enabled {
		opts.Auth = authSvc
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.New(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		engine.Run(gctx)
		return nil
	})
	if outcomeQueue != nil {
		outcomeQueue.Start(gctx)
		g.Go(func() error {
			<-gctx.Done()
			outcomeQueue.Stop()
			return nil
		})
	}
	if exportSvc != nil {
		g.Go(func() error {
			exportSvc.RunCleanup(gctx, cfg.Exports.CleanupInterval)
			return nil
		})
	}
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func presetStore(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client) (service.KeyValueStore, error) {
	switch cfg.Presets.Backend {
	case config.PresetBackendMemory:
		return repository.NewMemoryKVStore(), nil
	case config.PresetBackendRedis:
		if redisClient == nil {
			return nil, errors.New("PRESETS_BACKEND=redis requires REDIS_ENABLED")
		}
		return repository.NewRedisKVStore(redisClient), nil
	case config.PresetBackendPostgres:
		if db == nil {
			return nil, errors.New("PRESETS_BACKEND=postgres requires DB_ENABLED")
		}
		return repository.NewPostgresKVStore(db), nil
	case config.PresetBackendFile, "":
		store, err := storage.NewLocalStorage(cfg.Presets.FileDir)
		if err != nil {
			return nil, fmt.Errorf("init preset storage: %w", err)
		}
		return repository.NewFileKVStore(store), nil
	default:
		return nil, fmt.Errorf("unknown PRESETS_BACKEND %q", cfg.Presets.Backend)
	}
}
