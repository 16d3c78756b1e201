package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	"github.com/noah-isme/campus-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-timetable-api/pkg/middleware/requestid"
)

type routerDeps struct {
	metrics    *service.MetricsService
	auth       internalmiddleware.TokenValidator
	limiter    *internalmiddleware.IPRateLimiter
	classrooms *handler.ClassroomHandler
	schedules  *handler.ScheduleHandler
	professors *handler.ProfessorHandler
	conflicts  *handler.ConflictHandler
	calendar   *handler.CalendarHandler
	probes     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", deps.probes.Health)
	r.GET("/ready", deps.probes.Ready)
	r.GET("/metrics", deps.probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	readers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleProfessor)
	throttle := internalmiddleware.RateLimit(deps.limiter)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(deps.auth))

	classrooms := api.Group("/classrooms")
	classrooms.GET("", readers, deps.classrooms.List)
	classrooms.POST("", staff, deps.classrooms.Create)
	classrooms.GET("/:id", readers, deps.classrooms.Get)
	classrooms.PUT("/:id", staff, deps.classrooms.Update)
	classrooms.DELETE("/:id", staff, deps.classrooms.Delete)
	classrooms.GET("/:id/availability", readers, deps.classrooms.Availability)
	classrooms.GET("/:id/occupancy", readers, deps.classrooms.Occupancy)

	schedules := api.Group("/schedules")
	schedules.GET("", readers, deps.schedules.List)
	schedules.POST("", staff, deps.schedules.Create)
	schedules.POST("/bulk", staff, deps.schedules.BulkCreate)
	schedules.GET("/grid", readers, deps.schedules.Grid)
	schedules.GET("/grid/export", readers, throttle, deps.schedules.ExportGrid)
	schedules.GET("/:id", readers, deps.schedules.Get)
	schedules.PUT("/:id", staff, deps.schedules.Update)
	schedules.PATCH("/:id/active", staff, deps.schedules.SetActive)
	schedules.DELETE("/:id", staff, deps.schedules.Delete)

	api.GET("/professors/:id/agenda",
		internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), internalmiddleware.RoleSelf),
		deps.professors.Agenda,
	)

	conflicts := api.Group("/conflicts")
	conflicts.GET("", readers, deps.conflicts.List)
	conflicts.POST("/sweep", staff, throttle, deps.conflicts.Sweep)
	conflicts.GET("/sweeps/:id", staff, deps.conflicts.SweepStatus)
	conflicts.GET("/:id", readers, deps.conflicts.Get)
	conflicts.POST("/:id/resolve", staff, deps.conflicts.Resolve)

	calendar := api.Group("/calendar/events")
	calendar.GET("", readers, deps.calendar.List)
	calendar.POST("", staff, deps.calendar.Create)
	calendar.GET("/:id", readers, deps.calendar.Get)
	calendar.DELETE("/:id", staff, deps.calendar.Delete)

	return r
}
