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
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	_ "github.com/noah-isme/campus-timetable-api/api/swagger"
	"github.com/noah-isme/campus-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/repository"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/pkg/cache"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	"github.com/noah-isme/campus-timetable-api/pkg/database"
	"github.com/noah-isme/campus-timetable-api/pkg/jobs"
	"github.com/noah-isme/campus-timetable-api/pkg/keylock"
	"github.com/noah-isme/campus-timetable-api/pkg/logger"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Weekly timetable scheduling with professor and room conflict detection.
// @BasePath /api/v1
// @schemes http https
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

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	probes := map[string]handler.ReadinessProbe{"postgres": db}

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		redisRepo := repository.NewCacheRepository(client, logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		probes["redis"] = handler.ProbeFunc(redisRepo.Ping)
	} else {
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Timetable.ViewCacheTTL, 2*cfg.Timetable.ViewCacheTTL)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.ViewCacheTTL, logr, true)

	policy, err := service.NewTimetablePolicy(cfg.Timetable)
	if err != nil {
		logr.Fatal("invalid timetable policy", zap.Error(err))
	}

	validate := validator.New()

	scheduleRepo := repository.NewScheduleRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	detector := service.NewConflictDetector(scheduleRepo, classroomRepo, enrollmentRepo, logr)
	calendarSvc := service.NewCalendarService(calendarRepo, cacheSvc, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, scheduleRepo, cacheSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(service.ScheduleServiceDeps{
		Repo:      scheduleRepo,
		Subjects:  subjectRepo,
		Users:     userRepo,
		Rooms:     classroomRepo,
		Calendar:  calendarSvc,
		Detector:  detector,
		Tx:        db,
		Locks:     keylock.New(),
		Cache:     cacheSvc,
		Metrics:   metrics,
		Policy:    policy,
		Validator: validate,
		Logger:    logr,
	})
	conflictSvc := service.NewConflictService(conflictRepo, detector, cacheSvc, metrics, validate, logr)
	viewSvc := service.NewScheduleViewService(scheduleRepo, classroomRepo, subjectRepo, userRepo, conflictRepo, calendarSvc, cacheSvc, policy, logr)
	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepJobs := service.NewSweepJobService(nil, conflictSvc, time.Hour, logr)
	sweepQueue := jobs.NewQueue("conflict-sweeps", sweepJobs.Handle, jobs.QueueConfig{
		Workers:    cfg.Sweep.Workers,
		MaxRetries: cfg.Sweep.MaxRetries,
		RetryDelay: cfg.Sweep.RetryDelay,
		Logger:     logr,
	})
	sweepJobs.SetQueue(sweepQueue)
	sweepQueue.Start(rootCtx)
	defer sweepQueue.Stop()

	scheduler, err := sweepJobs.Schedule(cfg.Sweep.Cron, cfg.Sweep.Periods)
	if err != nil {
		logr.Fatal("invalid sweep schedule", zap.Error(err), zap.String("cron", cfg.Sweep.Cron))
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
		logr.Info("periodic conflict sweeps enabled", zap.String("cron", cfg.Sweep.Cron), zap.Strings("periods", cfg.Sweep.Periods))
	}

	r := newRouter(cfg, logr, routerDeps{
		metrics:    metrics,
		auth:       authSvc,
		limiter:    internalmiddleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst),
		classrooms: handler.NewClassroomHandler(classroomSvc, viewSvc),
		schedules:  handler.NewScheduleHandler(scheduleSvc, viewSvc),
		professors: handler.NewProfessorHandler(viewSvc),
		conflicts:  handler.NewConflictHandler(conflictSvc, sweepJobs),
		calendar:   handler.NewCalendarHandler(calendarSvc),
		probes:     handler.NewMetricsHandler(metrics, probes),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
