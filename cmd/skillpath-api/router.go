package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/skillpath-api/internal/handler"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/models"
	"github.com/noah-isme/skillpath-api/internal/service"
	"github.com/noah-isme/skillpath-api/pkg/config"
	"github.com/noah-isme/skillpath-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/skillpath-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/skillpath-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth        *handler.AuthHandler
	profile     *handler.ProfileHandler
	catalog     *handler.CatalogHandler
	enrollments *handler.EnrollmentHandler
	sessions    *handler.SessionHandler
	metrics     *handler.MetricsHandler
	metricsSvc  *service.MetricsService
	tokens      middleware.TokenValidator
	audit       middleware.AuditRecorder
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, middleware.RequestLogFields))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc, "/metrics"))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/register", deps.auth.Register)
	auth.POST("/login", deps.auth.Login)
	auth.POST("/refresh", deps.auth.Refresh)

	api.GET("/catalog", deps.catalog.Groups)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.tokens))
	secured.POST("/auth/logout", deps.auth.Logout)
	secured.GET("/auth/me", deps.auth.Me)

	secured.GET("/me/profile", deps.profile.GetProfile)
	secured.PUT("/me/profile", deps.profile.UpdateProfile)
	secured.GET("/me/skills", deps.profile.ListSkills)
	secured.PUT("/me/skills", deps.profile.UpsertSkill)
	secured.DELETE("/me/skills/:skill_name", deps.profile.DeleteSkill)

	secured.POST("/enrollments/requests", deps.enrollments.Submit)
	secured.GET("/enrollments/requests/mine", deps.enrollments.Mine)
	secured.GET("/enrollments/status", deps.enrollments.Status)
	secured.GET("/courses/overview", deps.enrollments.Overview)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireStaff())
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.audit, logr, action, resource)
	}

	admin.GET("/requests", deps.enrollments.AdminList)
	admin.POST("/requests/:id/approve", audit(models.AuditActionRequestApprove, "enrollment_request"), deps.enrollments.Approve)
	admin.POST("/requests/:id/reject", audit(models.AuditActionRequestReject, "enrollment_request"), deps.enrollments.Reject)

	admin.GET("/sessions", deps.sessions.List)
	admin.POST("/sessions", audit(models.AuditActionSessionSchedule, "session"), deps.sessions.Schedule)
	admin.POST("/sessions/admit", audit(models.AuditActionSessionAdmit, "session"), deps.sessions.Admit)
	admin.GET("/sessions/:id", deps.sessions.Get)
	admin.DELETE("/sessions/:id", audit(models.AuditActionSessionDismiss, "session"), deps.sessions.Dismiss)
	admin.POST("/sessions/:id/participants", audit(models.AuditActionSessionAdmit, "session"), deps.sessions.AddParticipants)
	admin.PUT("/sessions/:id/reschedule", audit(models.AuditActionSessionReschedule, "session"), deps.sessions.Reschedule)
	admin.PUT("/sessions/:id/attendance/:student_id", audit(models.AuditActionAttendanceMark, "attendance"), deps.sessions.MarkAttendance)
	admin.GET("/sessions/:id/roster", deps.sessions.Roster)

	return r
}
