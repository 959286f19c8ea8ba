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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/lemore-app/lemore-api/api/swagger"
	"github.com/lemore-app/lemore-api/internal/ai"
	"github.com/lemore-app/lemore-api/internal/handler"
	"github.com/lemore-app/lemore-api/internal/maintenance"
	"github.com/lemore-app/lemore-api/internal/middleware"
	"github.com/lemore-app/lemore-api/internal/repository"
	"github.com/lemore-app/lemore-api/internal/service"
	"github.com/lemore-app/lemore-api/pkg/cache"
	"github.com/lemore-app/lemore-api/pkg/config"
	"github.com/lemore-app/lemore-api/pkg/database"
	"github.com/lemore-app/lemore-api/pkg/export"
	"github.com/lemore-app/lemore-api/pkg/jobs"
	"github.com/lemore-app/lemore-api/pkg/logger"
	corsmiddleware "github.com/lemore-app/lemore-api/pkg/middleware/cors"
	reqidmiddleware "github.com/lemore-app/lemore-api/pkg/middleware/requestid"
	"github.com/lemore-app/lemore-api/pkg/storage"
)

// @title LE:MORE API
// @version 0.1.0
// @description Declutter assistant backend: sessions, items, AI analysis, listings and the declutter calendar
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	// Repositories.
	sessionRepo := repository.NewSessionRepository(db)
	itemRepo := repository.NewItemRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	listingRepo := repository.NewListingRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	planRepo := repository.NewMovingPlanRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Dashboard.CacheTTL, logr)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr)
	}
	quotaSvc := service.NewQuotaService(itemRepo, sessionRepo, cfg.Quota.MaxFreeActions, metricsSvc, logr)
	gateway := ai.NewOpenAIGateway(cfg.AI, logr)

	itemSvc := service.NewItemService(itemRepo, photoRepo, sessionRepo, uploads, signer, nil,
		quotaSvc, gateway, cacheSvc, metricsSvc, nil, logr,
		cfg.Uploads.PublicBaseURL, cfg.Uploads.MaxPhotosPerItem)

	classifyQueue := jobs.NewQueue("classify", itemSvc.HandleJob, jobs.QueueConfig{
		Workers: cfg.AI.Workers,
		Logger:  logr,
	})
	classifyQueue.Start(ctx)
	defer classifyQueue.Stop()
	itemSvc.SetQueue(classifyQueue)

	sessionSvc := service.NewSessionService(sessionRepo, challengeRepo, planRepo, quotaSvc, gateway, cacheSvc, metricsSvc, nil, logr)
	listingSvc := service.NewListingService(listingRepo, itemRepo, gateway, metricsSvc, nil, logr)
	challengeSvc := service.NewChallengeService(challengeRepo, export.NewCSVExporter(), cacheSvc, nil, logr)
	dashboardSvc := service.NewDashboardService(sessionRepo, itemRepo, challengeSvc, quotaSvc, cacheSvc, logr)
	reportSvc := service.NewReportService(sessionRepo, itemRepo, export.NewPDFExporter(), logr)

	// Maintenance sweeps.
	sweeper := maintenance.NewSweeper(cfg.Maintenance, itemRepo, photoRepo, uploads, logr)
	if err := sweeper.Start(ctx); err != nil {
		logr.Sugar().Fatalw("failed to schedule maintenance", "error", err)
	}
	defer sweeper.Stop()

	// Handlers.
	sessionHandler := handler.NewSessionHandler(sessionSvc, reportSvc)
	itemHandler := handler.NewItemHandler(itemSvc, handler.UploadLimits{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		MaxPhotos:        cfg.Uploads.MaxPhotosPerItem,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	})
	listingHandler := handler.NewListingHandler(listingSvc)
	challengeHandler := handler.NewChallengeHandler(challengeSvc)
	quotaHandler := handler.NewQuotaHandler(quotaSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	photoHandler := handler.NewPhotoHandler(signer, uploads)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/photos/:token", photoHandler.Serve)

	protected := api.Group("")
	protected.Use(middleware.JWT(cfg.JWT.Secret))
	{
		protected.GET("/quota", quotaHandler.Get)
		protected.GET("/dashboard", dashboardHandler.Get)

		protected.POST("/sessions", sessionHandler.Create)
		protected.GET("/sessions", sessionHandler.List)
		protected.GET("/sessions/:id", sessionHandler.Get)
		protected.POST("/sessions/:id/complete", sessionHandler.Complete)
		protected.POST("/sessions/:id/archive", sessionHandler.Archive)
		protected.POST("/sessions/:id/moving-plan", sessionHandler.GenerateMovingPlan)
		protected.GET("/sessions/:id/moving-plan", sessionHandler.GetMovingPlan)
		protected.GET("/sessions/:id/report", sessionHandler.Report)
		protected.GET("/sessions/:id/items", itemHandler.ListBySession)
		protected.POST("/sessions/:id/items", itemHandler.Create)

		protected.POST("/items", itemHandler.Create)
		protected.GET("/items/:id", itemHandler.Get)
		protected.DELETE("/items/:id", itemHandler.Delete)
		protected.POST("/items/:id/analyze", itemHandler.RetryAnalysis)
		protected.PUT("/items/:id/decision", itemHandler.SetDecision)
		protected.POST("/items/:id/price", itemHandler.SuggestPrice)
		protected.GET("/items/:id/listings", listingHandler.ListByItem)

		protected.POST("/listings/generate", listingHandler.Generate)

		protected.POST("/challenges", challengeHandler.Schedule)
		protected.GET("/challenges", challengeHandler.List)
		protected.GET("/challenges/export", challengeHandler.Export)
		protected.POST("/challenges/:id/complete", challengeHandler.Complete)
		protected.DELETE("/challenges/:id", challengeHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
