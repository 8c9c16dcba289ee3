package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/skillpath-api/api/swagger"
	"github.com/noah-isme/skillpath-api/internal/catalog"
	"github.com/noah-isme/skillpath-api/internal/handler"
	"github.com/noah-isme/skillpath-api/internal/repository"
	"github.com/noah-isme/skillpath-api/internal/service"
	"github.com/noah-isme/skillpath-api/pkg/cache"
	"github.com/noah-isme/skillpath-api/pkg/config"
	"github.com/noah-isme/skillpath-api/pkg/database"
	"github.com/noah-isme/skillpath-api/pkg/jobs"
	"github.com/noah-isme/skillpath-api/pkg/logger"
)

// @title SkillPath API
// @version 1.0.0
// @description Skill tracking, enrollment requests and session scheduling
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		if cfg.Cache.Enabled || cfg.Notifications.Enabled {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		logr.Warn("redis unavailable, cache and notifications stay off", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	skills, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logr.Fatal("failed to load skill catalog", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}
	logr.Info("skill catalog loaded", zap.Int("courses", skills.Size()))

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	skillRepo := repository.NewSkillRepository(db)
	requestRepo := repository.NewEnrollmentRequestRepository(db)
	approvedRepo := repository.NewApprovedEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Cache.CourseTTL, logr, cfg.Cache.Enabled)
	}

	notifier := service.NewNotificationService(cache.NewPublisher(redisClient), service.NotificationConfig{
		Enabled:       cfg.Notifications.Enabled && redisClient != nil,
		Workers:       cfg.Notifications.Workers,
		Retries:       cfg.Notifications.Retries,
		ChannelPrefix: cfg.Notifications.ChannelPrefix,
	}, logr)

	authSvc := service.NewAuthService(db, userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "skillpath-api",
		Audience:           []string{"skillpath-clients"},
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	skillSvc := service.NewSkillService(skillRepo, skills, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceDeps{
		Tx:       db,
		Locker:   sessionRepo,
		Requests: requestRepo,
		Approved: approvedRepo,
		Sessions: sessionRepo,
		Catalog:  skills,
		Audit:    userRepo,
		Cache:    cacheSvc,
		Metrics:  metricsSvc,
		Notifier: notifier,
	}, service.EnrollmentConfig{
		MaxParticipantsPerCourse: cfg.Enrollment.MaxParticipantsPerCourse,
		CourseCacheTTL:           cfg.Cache.CourseTTL,
	}, validate, logr)
	schedulingSvc := service.NewSchedulingService(service.SchedulingServiceDeps{
		Tx:         db,
		Sessions:   sessionRepo,
		Attendance: attendanceRepo,
		Requests:   requestRepo,
		Approved:   approvedRepo,
		Catalog:    skills,
		Cache:      cacheSvc,
		Metrics:    metricsSvc,
		Notifier:   notifier,
	}, service.SchedulingConfig{
		MaxParticipantsPerCourse: cfg.Enrollment.MaxParticipantsPerCourse,
		DefaultSessionCapacity:   cfg.Enrollment.DefaultSessionCapacity,
	}, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)
	defer notifier.Stop()

	// Overviews cached by a previous process are stale once the ceiling changes.
	if err := cacheSvc.Invalidate(ctx, "course_overview:*"); err != nil {
		logr.Warn("failed to flush course overview cache", zap.Error(err))
	}

	if cfg.Maintenance.Enabled {
		maintenance := service.NewMaintenanceService(userRepo, sessionRepo, cacheSvc, logr)
		scheduler := jobs.NewScheduler(logr, cfg.Maintenance.Timeout)
		if err := scheduler.Add("refresh_token_purge", cfg.Maintenance.TokenPurgeSpec, maintenance.PurgeRefreshTokens); err != nil {
			logr.Fatal("failed to schedule maintenance", zap.Error(err))
		}
		if err := scheduler.Add("session_sweep", cfg.Maintenance.SessionSweepSpec, maintenance.DeactivatePastSessions); err != nil {
			logr.Fatal("failed to schedule maintenance", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	checks := map[string]handler.Pinger{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = redisPinger(redisClient)
	}

	r := newRouter(cfg, logr, routerDeps{
		auth:        handler.NewAuthHandler(authSvc),
		profile:     handler.NewProfileHandler(userSvc, skillSvc),
		catalog:     handler.NewCatalogHandler(skills),
		enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		sessions:    handler.NewSessionHandler(schedulingSvc),
		metrics:     handler.NewMetricsHandler(metricsSvc, checks),
		metricsSvc:  metricsSvc,
		tokens:      authSvc,
		audit:       userRepo,
	})

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
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func redisPinger(client *redis.Client) handler.Pinger {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
