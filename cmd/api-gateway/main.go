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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/admission-workflow-api/api/swagger"
	"github.com/noah-isme/admission-workflow-api/internal/handler"
	"github.com/noah-isme/admission-workflow-api/internal/middleware"
	"github.com/noah-isme/admission-workflow-api/internal/repository"
	"github.com/noah-isme/admission-workflow-api/internal/service"
	"github.com/noah-isme/admission-workflow-api/internal/workflow"
	"github.com/noah-isme/admission-workflow-api/pkg/cache"
	"github.com/noah-isme/admission-workflow-api/pkg/config"
	"github.com/noah-isme/admission-workflow-api/pkg/database"
	"github.com/noah-isme/admission-workflow-api/pkg/jobs"
	"github.com/noah-isme/admission-workflow-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/admission-workflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/admission-workflow-api/pkg/middleware/requestid"
)

// @title Admission Workflow API
// @version 1.0.0
// @description Multi-tenant school admissions: applications, payments and their status workflows
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.RoleCache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, role cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	metrics := service.NewMetricsService()

	appRepo := repository.NewApplicationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	userRepo := repository.NewUserRepository(db)
	requirementRepo := repository.NewRequirementRepository()

	roles := service.NewCachedRoleProvider(roleRepo, nil, metrics, cfg.RoleCache.TTL, logr)
	if redisClient != nil {
		roleCache := repository.NewRoleCacheRepository(redisClient, logr)
		defer roleCache.Close() //nolint:errcheck
		roles = service.NewCachedRoleProvider(roleRepo, roleCache, metrics, cfg.RoleCache.TTL, logr)
	}
	registry := workflow.DefaultRegistry()
	guard := workflow.NewGuard(registry, roles)
	audit := service.NewAuditLogger(activityRepo, logr)

	var notifications *service.NotificationService
	if cfg.Notifications.Enabled {
		queue := jobs.NewQueue("notifications", jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
		var notifier service.Notifier = service.NewLogNotifier(logr)
		if cfg.Notifications.SendgridAPIKey != "" {
			notifier = service.NewSendgridNotifier(cfg.Notifications.SendgridAPIKey, cfg.Notifications.FromName, cfg.Notifications.FromAddress)
		}
		notifications = service.NewNotificationService(queue, userRepo, notifier, metrics, logr)
		// Shutdown cancels the workers after the HTTP server has drained.
		queue.Start(context.Background())
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			queue.Shutdown(drainCtx)
		}()
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	applications := service.NewApplicationService(appRepo, schoolRepo, requirementRepo, guard, audit, notifications, db, nil, metrics, logr)
	payments := service.NewPaymentService(paymentRepo, appRepo, guard, audit, notifications, db, nil, metrics, logr)
	schools := service.NewSchoolService(schoolRepo, roles, roles, logr)

	applicationHandler := handler.NewApplicationHandler(applications, registry)
	paymentHandler := handler.NewPaymentHandler(payments, registry)
	schoolHandler := handler.NewSchoolHandler(schools)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/health", "/ready", "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/applications/statuses", applicationHandler.Statuses)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.POST("/applications", applicationHandler.Create)
	secured.GET("/applications", applicationHandler.List)
	secured.GET("/applications/:id", applicationHandler.Get)
	secured.PATCH("/applications/:id", applicationHandler.Update)
	secured.POST("/applications/:id/submit", applicationHandler.Submit)
	secured.POST("/applications/:id/transition", applicationHandler.Transition)
	secured.POST("/applications/:id/withdraw", applicationHandler.Withdraw)
	secured.GET("/applications/:id/history", applicationHandler.History)
	secured.GET("/applications/:id/payments", paymentHandler.ListByApplication)

	secured.POST("/payments", paymentHandler.Create)
	secured.GET("/payments/:id", paymentHandler.Get)
	secured.GET("/payments/:id/history", paymentHandler.History)
	secured.POST("/payments/:id/proof", paymentHandler.SubmitProof)
	secured.POST("/payments/:id/verify", paymentHandler.Verify)
	secured.POST("/payments/:id/reject", paymentHandler.Reject)
	secured.POST("/payments/:id/refund", paymentHandler.Refund)

	secured.PUT("/schools/:id/academic-years/active", schoolHandler.SetActiveAcademicYear)
	secured.PUT("/schools/:id/admission-periods/active", schoolHandler.SetActiveAdmissionPeriod)
	secured.POST("/schools/:id/users/:userId/roles/refresh", schoolHandler.RefreshRoles)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
