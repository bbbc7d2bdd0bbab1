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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/gizmohq/survey-api/api/swagger"
	"github.com/gizmohq/survey-api/internal/handler"
	"github.com/gizmohq/survey-api/internal/middleware"
	"github.com/gizmohq/survey-api/internal/models"
	"github.com/gizmohq/survey-api/internal/repository"
	"github.com/gizmohq/survey-api/internal/service"
	"github.com/gizmohq/survey-api/pkg/cache"
	"github.com/gizmohq/survey-api/pkg/config"
	"github.com/gizmohq/survey-api/pkg/database"
	"github.com/gizmohq/survey-api/pkg/export"
	"github.com/gizmohq/survey-api/pkg/logger"
	corsmiddleware "github.com/gizmohq/survey-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gizmohq/survey-api/pkg/middleware/requestid"
	"github.com/gizmohq/survey-api/pkg/storage"
)

// @title Survey Analytics API
// @version 1.0.0
// @description Survey administration analytics for teachers: per-question aggregation, word clouds and dashboard trends
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Analytics.CacheEnabled || cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	surveyRepo := repository.NewSurveyRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	analyticsCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled && cacheRepo != nil)
	dashboardCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheRepo != nil)

	analyticsSvc := service.NewSurveyAnalyticsService(service.SurveyAnalyticsParams{
		Surveys:   surveyRepo,
		Responses: responseRepo,
		Roster:    sectionRepo,
		WordCloud: service.NewWordCloudSummarizer(nil, cfg.Analytics.WordCloudLimit),
		Cache:     analyticsCache,
		Metrics:   metricsSvc,
		Logger:    logr,
		Config: service.SurveyAnalyticsConfig{
			CacheTTL:     cfg.Analytics.CacheTTL,
			RecentWindow: cfg.Analytics.RecentWindow,
		},
	})

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Surveys:   surveyRepo,
		Responses: responseRepo,
		Sections:  sectionRepo,
		Cache:     dashboardCache,
		Metrics:   metricsSvc,
		Logger:    logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:        cfg.Dashboard.CacheTTL,
			TrendWindowDays: cfg.Dashboard.TrendWindowDays,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	if cfg.Export.Enabled {
		store, err := storage.NewLocalStorage(cfg.Export.ArchiveDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		archive := service.NewExportArchive(store, cfg.Export.ArchiveTTL, logr)
		archive.Start(ctx)
		defer archive.Stop()
		archive.Cleanup()
		exportSvc = service.NewExportService(analyticsSvc, export.NewCSVExporter(), export.NewPDFExporter(), archive, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	adminOnly := authed.Group("")
	adminOnly.Use(middleware.RequireRoles(models.RoleAdmin))
	adminOnly.GET("/system/metrics", metricsHandler.System)

	teacherOnly := authed.Group("")
	teacherOnly.Use(middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	teacherOnly.GET("/surveys/:id/analytics", analyticsHandler.Survey)
	teacherOnly.GET("/dashboard/analytics", dashboardHandler.Analytics)
	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		teacherOnly.GET("/surveys/:id/analytics/export", exportHandler.Survey)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
