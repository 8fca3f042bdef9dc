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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/spa-scheduler-api/api/swagger"
	"github.com/noah-isme/spa-scheduler-api/internal/events"
	"github.com/noah-isme/spa-scheduler-api/internal/handler"
	"github.com/noah-isme/spa-scheduler-api/internal/middleware"
	"github.com/noah-isme/spa-scheduler-api/internal/repository"
	"github.com/noah-isme/spa-scheduler-api/internal/scheduling"
	"github.com/noah-isme/spa-scheduler-api/internal/service"
	"github.com/noah-isme/spa-scheduler-api/migrations"
	"github.com/noah-isme/spa-scheduler-api/pkg/cache"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
	"github.com/noah-isme/spa-scheduler-api/pkg/config"
	"github.com/noah-isme/spa-scheduler-api/pkg/database"
	"github.com/noah-isme/spa-scheduler-api/pkg/jobs"
	"github.com/noah-isme/spa-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/spa-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/spa-scheduler-api/pkg/middleware/requestid"
)

// @title Spa Scheduler API
// @version 1.0.0
// @description Staff and room assignment engine for spa bookings
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.AutoMigrate {
		migrator, err := database.NewMigrator(db.DB, migrations.FS, logr)
		if err != nil {
			logr.Fatal("failed to init migrator", zap.Error(err))
		}
		if err := migrator.Up(ctx); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	metrics := service.NewMetricsService()

	publisher, closePublisher := newPublisher(cfg.Notifications, logr)
	defer closePublisher()
	dispatcher := events.NewDispatcher(publisher, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	dispatcher.Start(context.Background())

	services, err := buildServices(cfg, db, redisClient, metrics, dispatcher, logr)
	if err != nil {
		logr.Fatal("failed to build services", zap.Error(err))
	}

	if cfg.Scheduling.RebuildOnStart {
		if _, err := services.assignments.RebuildIndex(ctx); err != nil {
			logr.Fatal("failed to build conflict index", zap.Error(err))
		}
	}

	r := newRouter(cfg, logr, metrics, checks, services)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "lock_backend", cfg.Scheduling.LockBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	dispatcher.Stop(shutdownCtx)
}

type appServices struct {
	assignments  *service.AssignmentService
	availability *service.AvailabilityService
	roster       *service.RosterService
}

func buildServices(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService, emitter service.EventEmitter, logr *zap.Logger) (*appServices, error) {
	policy, err := availabilityPolicy(cfg.Scheduling)
	if err != nil {
		return nil, err
	}
	locker, err := newLocker(cfg.Scheduling, redisClient, logr)
	if err != nil {
		return nil, err
	}

	var candidateCache *service.CacheService
	if cfg.Scheduling.CandidateCache && redisClient != nil {
		candidateCache = service.NewCacheService(repository.NewCacheRepository(redisClient, "spa:"), metrics, cfg.Scheduling.CandidateTTL, logr, true)
	}

	validate := validator.New()
	bookingRepo := repository.NewBookingRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	shiftRepo := repository.NewShiftRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return &appServices{
		assignments: service.NewAssignmentService(bookingRepo, staffRepo, roomRepo, shiftRepo, scheduling.NewConflictIndex(), validate, logr,
			service.WithAvailabilityPolicy(policy),
			service.WithLocker(locker, cfg.Scheduling.LockWait),
			service.WithReloadOnCommit(cfg.Scheduling.ReloadOnCommit),
			service.WithCandidateCache(candidateCache, cfg.Scheduling.CandidateTTL),
			service.WithAssignmentMetrics(metrics),
			service.WithAssignmentAudit(auditRepo),
			service.WithAssignmentEvents(emitter),
		),
		availability: service.NewAvailabilityService(shiftRepo, staffRepo, validate, logr,
			service.WithAvailabilityCache(candidateCache),
			service.WithAvailabilityMetrics(metrics),
			service.WithAvailabilityAudit(auditRepo),
			service.WithAvailabilityEvents(emitter),
		),
		roster: service.NewRosterService(bookingRepo, staffRepo, roomRepo, logr),
	}, nil
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, checks map[string]handler.ReadinessCheck, services *appServices) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.RateLimit.Enabled {
		api.Use(middleware.NewRateLimiter(cfg.RateLimit).Handler())
	}

	assignmentHandler := handler.NewAssignmentHandler(services.assignments)
	api.GET("/bookings/:id/candidates", assignmentHandler.Candidates)
	api.POST("/bookings/:id/assignment", assignmentHandler.Commit)
	api.POST("/bookings/:id/cancel", assignmentHandler.Cancel)

	availabilityHandler := handler.NewAvailabilityHandler(services.availability)
	api.GET("/availability", availabilityHandler.List)
	api.POST("/availability", availabilityHandler.Submit)
	api.POST("/availability/review", availabilityHandler.Review)
	api.POST("/shifts", availabilityHandler.CreateShift)

	rosterHandler := handler.NewRosterHandler(services.roster)
	api.GET("/roster", rosterHandler.Get)

	adminHandler := handler.NewAdminHandler(services.assignments)
	api.POST("/admin/index/rebuild", adminHandler.RebuildIndex)

	return r
}

func availabilityPolicy(cfg config.SchedulingConfig) (scheduling.Policy, error) {
	start, err := clock.Parse(cfg.DefaultHoursStart)
	if err != nil {
		return scheduling.Policy{}, fmt.Errorf("default hours start: %w", err)
	}
	end, err := clock.Parse(cfg.DefaultHoursEnd)
	if err != nil {
		return scheduling.Policy{}, fmt.Errorf("default hours end: %w", err)
	}
	if start >= end {
		return scheduling.Policy{}, fmt.Errorf("default hours %s-%s are empty", start, end)
	}
	return scheduling.Policy{DefaultStart: start, DefaultEnd: end}, nil
}

func newLocker(cfg config.SchedulingConfig, redisClient *redis.Client, logr *zap.Logger) (scheduling.Locker, error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return scheduling.NewMemoryLocker(), nil
	}
	if redisClient == nil {
		return nil, errors.New("redis lock backend requires REDIS_ENABLED=true")
	}
	return scheduling.NewRedisLocker(redisClient, scheduling.RedisLockerConfig{
		Prefix: "spa:lock:",
		TTL:    cfg.LockTTL,
		Logger: logr,
	}), nil
}

func newPublisher(cfg config.NotificationsConfig, logr *zap.Logger) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logr), func() {}
	}
	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	logr.Info("publishing scheduling events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logr.Warn("failed to close kafka writer", zap.Error(err))
		}
	}
}
