package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/aditpras/civil-registry-api/api/swagger"
	"github.com/aditpras/civil-registry-api/internal/handler"
	"github.com/aditpras/civil-registry-api/internal/middleware"
	"github.com/aditpras/civil-registry-api/internal/repository"
	"github.com/aditpras/civil-registry-api/internal/service"
	"github.com/aditpras/civil-registry-api/pkg/cache"
	"github.com/aditpras/civil-registry-api/pkg/config"
	"github.com/aditpras/civil-registry-api/pkg/database"
	"github.com/aditpras/civil-registry-api/pkg/export"
	"github.com/aditpras/civil-registry-api/pkg/hash"
	"github.com/aditpras/civil-registry-api/pkg/jobs"
	"github.com/aditpras/civil-registry-api/pkg/logger"
	"github.com/aditpras/civil-registry-api/pkg/middleware/cors"
	"github.com/aditpras/civil-registry-api/pkg/middleware/requestid"
	"github.com/aditpras/civil-registry-api/pkg/storage"
)

const (
	jobSessionSweep  = "session_sweep"
	jobExportCleanup = "export_cleanup"
)

// @title Civil Registry API
// @version 1.0.0
// @description Driving-license and identity-card registry backend
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer log.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, log)
	defer cacheRepo.Close() //nolint:errcheck

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		log.Fatal("failed to init export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()
	hasher := hash.New(cfg.Auth.BcryptCost)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	licenseRepo := repository.NewLicenseRepository(db)
	idCardRepo := repository.NewIDCardRepository(db)

	authSvc := service.NewAuthService(userRepo, sessionRepo, hasher, validate, log, service.AuthConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessExpiry:  cfg.JWT.AccessExpiry,
		RefreshExpiry: cfg.JWT.RefreshExpiry,
		Issuer:        cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, hasher, validate, log)
	metricsSvc := service.NewMetricsService()
	licenseSvc := service.NewLicenseService(licenseRepo, userRepo, cacheRepo, validate, log, service.LicenseConfig{
		CacheTTL: cfg.Cache.TTL,
	}).WithMetrics(metricsSvc)
	idCardSvc := service.NewIDCardService(idCardRepo, userRepo, cacheRepo, validate, log, service.IDCardConfig{
		CacheTTL: cfg.Cache.TTL,
	}).WithMetrics(metricsSvc)
	exportSvc := service.NewExportService(licenseRepo, fileStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
	}, log, export.NewCardPDF())

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	licenseHandler := handler.NewLicenseHandler(licenseSvc, exportSvc)
	idCardHandler := handler.NewIDCardHandler(idCardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	maintenance := jobs.NewQueue("maintenance", func(ctx context.Context, job jobs.Job) error {
		switch job.Type {
		case jobSessionSweep:
			removed, err := authSvc.SweepExpiredSessions(ctx)
			if err != nil {
				return err
			}
			if removed > 0 {
				log.Info("expired sessions swept", zap.Int("removed", removed))
			}
		case jobExportCleanup:
			removed, err := exportSvc.Cleanup()
			if err != nil {
				return err
			}
			if removed > 0 {
				log.Info("stale exports cleaned", zap.Int("removed", removed))
			}
		default:
			log.Warn("unknown maintenance job", zap.String("type", job.Type))
		}
		return nil
	}, jobs.Options{Workers: 1, Logger: log})
	maintenance.Start(ctx)
	defer maintenance.Stop()

	go runMaintenanceTicker(ctx, maintenance, cfg.Session.SweepInterval, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(cors.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)
		api.GET("/exports/:token", licenseHandler.Download)

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", authHandler.Me)

			protected.POST("/users", userHandler.Create)
			protected.GET("/users", userHandler.List)
			protected.GET("/users/:id", userHandler.Get)
			protected.PUT("/users/:id", userHandler.Update)
			protected.DELETE("/users/:id", userHandler.Delete)

			protected.POST("/licenses", licenseHandler.Issue)
			protected.GET("/licenses", licenseHandler.List)
			protected.GET("/licenses/decode/:number", licenseHandler.Decode)
			protected.GET("/licenses/:id", licenseHandler.Get)
			protected.PUT("/licenses/:id", licenseHandler.Update)
			protected.DELETE("/licenses/:id", licenseHandler.Delete)
			protected.POST("/licenses/:id/export", licenseHandler.Export)

			protected.POST("/id-cards", idCardHandler.Create)
			protected.GET("/id-cards", idCardHandler.List)
			protected.GET("/id-cards/nik/:nik", idCardHandler.GetByNIK)
			protected.GET("/id-cards/:id", idCardHandler.Get)
			protected.PUT("/id-cards/:id", idCardHandler.Update)
			protected.DELETE("/id-cards/:id", idCardHandler.Delete)

			protected.GET("/metrics/stats", metricsHandler.Stats)
		}
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

// runMaintenanceTicker periodically enqueues the session sweep and export
// cleanup jobs until the context is cancelled.
func runMaintenanceTicker(ctx context.Context, queue *jobs.Queue, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stamp := now.UTC().Format(time.RFC3339)
			for _, jobType := range []string{jobSessionSweep, jobExportCleanup} {
				if err := queue.Enqueue(jobs.Job{ID: jobType + "-" + stamp, Type: jobType}); err != nil {
					log.Warn("failed to enqueue maintenance job", zap.String("type", jobType), zap.Error(err))
				}
			}
		}
	}
}
