package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/training-center-api/api/swagger"
	"github.com/noah-isme/training-center-api/internal/handler"
	"github.com/noah-isme/training-center-api/internal/middleware"
	"github.com/noah-isme/training-center-api/internal/models"
	"github.com/noah-isme/training-center-api/internal/repository"
	"github.com/noah-isme/training-center-api/internal/service"
	"github.com/noah-isme/training-center-api/pkg/config"
	"github.com/noah-isme/training-center-api/pkg/export"
	"github.com/noah-isme/training-center-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/training-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/training-center-api/pkg/middleware/requestid"
)

const dayCachePattern = "sessions:day:*"

type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	auth    *service.AuthService
	metrics *service.MetricsService

	enrollments *handler.EnrollmentHandler
	groups      *handler.GroupHandler
	sessions    *handler.SessionHandler
	occupancy   *handler.OccupancyHandler
	probes      *handler.MetricsHandler
}

func newApplication(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, cacheRepo *repository.CacheRepository, cacheSvc *service.CacheService, metrics *service.MetricsService) *application {
	validate := validator.New()
	tx := repository.NewTransactor(db)

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	refRepo := repository.NewReferenceRepository(db)

	grid := service.SlotGrid{
		DayStart:  cfg.Scheduling.DayStart,
		DayEnd:    cfg.Scheduling.DayEnd,
		SlotWidth: cfg.Scheduling.SlotWidth,
		Location:  cfg.Scheduling.Location,
	}

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	enrollmentSvc := service.NewEnrollmentService(tx, enrollmentRepo, refRepo, service.NewAuditTrail(historyRepo), metrics, validate, logr)
	groupSvc := service.NewGroupService(tx, groupRepo, enrollmentRepo, refRepo, metrics, logr)
	sessionSvc := service.NewSessionService(tx, sessionRepo, refRepo, groupRepo, cacheSvc, metrics, validate, logr, service.SessionServiceConfig{
		DefaultDuration: cfg.Scheduling.DefaultSessionDuration,
		Grid:            grid,
	})
	occupancySvc := service.NewOccupancyService(sessionRepo, refRepo, cacheSvc, grid, logr)
	exportSvc := service.NewExportService(grid.Location, logr, export.NewCSVExporter(), export.NewPDFExporter())

	checks := map[string]handler.Pinger{"database": db}
	if cacheSvc.Enabled() {
		checks["cache"] = handler.PingerFunc(func(ctx context.Context) error { return cacheRepo.Ping(ctx) })
	}

	return &application{
		cfg:         cfg,
		logger:      logr,
		auth:        authSvc,
		metrics:     metrics,
		enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		groups:      handler.NewGroupHandler(groupSvc),
		sessions:    handler.NewSessionHandler(sessionSvc),
		occupancy:   handler.NewOccupancyHandler(occupancySvc, exportSvc),
		probes:      handler.NewMetricsHandler(metrics, checks),
	}
}

func (a *application) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics, "/metrics"))

	r.GET("/health", a.probes.Health)
	r.GET("/ready", a.probes.Ready)
	if a.metrics != nil {
		r.GET("/metrics", a.probes.Prometheus)
	}
	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(a.cfg.APIPrefix)
	api.Use(middleware.JWT(a.auth))
	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	enrollments := api.Group("/enrollments")
	enrollments.GET("/:id", a.enrollments.Get)
	enrollments.GET("/:id/history", a.enrollments.History)
	enrollments.POST("", admin, a.enrollments.Create)
	enrollments.PATCH("/:id/validate", admin, a.enrollments.Validate)
	enrollments.PATCH("/:id/reject", admin, a.enrollments.Reject)
	enrollments.PATCH("/:id/mark-paid", admin, a.enrollments.MarkPaid)
	enrollments.PATCH("/:id/finish", admin, a.enrollments.Finish)

	groups := api.Group("/groups")
	groups.GET("/:id", a.groups.Get)
	groups.POST("/:id/students/:sid", admin, a.groups.AddStudent)
	groups.DELETE("/:id/students/:sid", admin, a.groups.RemoveStudent)

	api.POST("/sessions", admin, a.sessions.Create)

	api.GET("/rooms/schedule", a.occupancy.RoomSchedule)
	api.GET("/rooms/:id/occupancy", a.occupancy.RoomOccupancy)
	api.GET("/teachers/:id/occupancy", a.occupancy.TeacherOccupancy)

	api.GET("/admin/metrics", admin, a.probes.Snapshot)

	return r
}
