package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-coverage-api/api/swagger"
	"github.com/noah-isme/sma-coverage-api/internal/handler"
	"github.com/noah-isme/sma-coverage-api/internal/middleware"
	"github.com/noah-isme/sma-coverage-api/internal/repository"
	"github.com/noah-isme/sma-coverage-api/internal/service"
	"github.com/noah-isme/sma-coverage-api/pkg/cache"
	"github.com/noah-isme/sma-coverage-api/pkg/config"
	"github.com/noah-isme/sma-coverage-api/pkg/database"
	"github.com/noah-isme/sma-coverage-api/pkg/jobs"
	"github.com/noah-isme/sma-coverage-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-coverage-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-coverage-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-coverage-api/pkg/storage"
)

// @title SMA Coverage API
// @version 0.1.0
// @description Absence coverage assignment engine for school operations
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, distribution runs will not be cached", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	staffRepo := repository.NewStaffRepository(db)
	classRepo := repository.NewClassRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	absenceRepo := repository.NewAbsenceRepository(db)
	coverageRepo := repository.NewCoverageRepository(db)
	poolRepo := repository.NewPoolRepository(db)
	substitutionRepo := repository.NewSubstitutionRepository(db)
	modeRepo := repository.NewModeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	classifierSvc := service.NewClassifierService(logr)
	swapSvc := service.NewSwapService(logr)
	policySvc := service.NewPolicyService(logr)

	absenceSvc := service.NewAbsenceService(
		absenceRepo, coverageRepo, poolRepo, substitutionRepo,
		lessonRepo, staffRepo, db, validate, logr,
	)
	modeSvc := service.NewModeService(modeRepo, validate, logr)
	substitutionSvc := service.NewSubstitutionService(substitutionRepo, logr)

	distributionSvc := service.NewDistributionService(
		absenceRepo, coverageRepo, staffRepo, classRepo, lessonRepo,
		poolRepo, substitutionRepo, modeRepo,
		classifierSvc, policySvc, swapSvc, absenceSvc,
		cacheRepo, metricsSvc, validate, logr,
		service.DistributionConfig{
			GridCacheTTL: cfg.Distribution.GridCacheTTL,
			AutoAssign:   cfg.Coverage.AutoAssign,
		},
	)

	queue := jobs.NewQueue("distribution", distributionSvc.HandleModeRunJob, jobs.QueueConfig{
		Workers:    cfg.Distribution.WorkerConcurrency,
		BufferSize: cfg.Distribution.QueueBufferSize,
		MaxRetries: cfg.Distribution.WorkerRetries,
		Logger:     logr,
	})
	distributionSvc.AttachQueue(queue)

	var substitutionHandler *handler.SubstitutionHandler
	if cfg.Exports.Enabled {
		exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(substitutionRepo, staffRepo, exportStorage, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, validate, logr, nil, nil)
		substitutionHandler = handler.NewSubstitutionHandler(substitutionSvc, exportSvc)
		go exportCleanupLoop(exportSvc, cfg.Exports.CleanupInterval, logr)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router := &handler.Router{
		Absences:      handler.NewAbsenceHandler(absenceSvc),
		Coverage:      handler.NewCoverageHandler(absenceSvc, distributionSvc),
		Distribution:  handler.NewDistributionHandler(distributionSvc),
		Modes:         handler.NewModeHandler(modeSvc),
		Substitutions: substitutionHandler,
		Metrics:       handler.NewMetricsHandler(metricsSvc),
	}
	router.Register(r, cfg.APIPrefix)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func exportCleanupLoop(exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		removed, err := exports.Cleanup(0)
		if err != nil {
			logr.Sugar().Warnw("export cleanup failed", "error", err)
			continue
		}
		if len(removed) > 0 {
			logr.Sugar().Infow("expired exports removed", "count", len(removed))
		}
	}
}
