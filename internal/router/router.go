package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/handler"
	"github.com/noah-isme/school-core-api/internal/middleware"
	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/service"
	"github.com/noah-isme/school-core-api/pkg/config"
	"github.com/noah-isme/school-core-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-core-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-core-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler mounted by the router.
type Handlers struct {
	Auth       *handler.AuthHandler
	CASetup    *handler.CASetupHandler
	Exam       *handler.ExamHandler
	Grade      *handler.GradeHandler
	Attendance *handler.AttendanceHandler
	Report     *handler.ReportHandler
	Parent     *handler.ParentHandler
	Metrics    *handler.MetricsHandler
}

// New assembles the gin engine with middleware and the full route table.
func New(cfg *config.Config, logr *zap.Logger, auth *service.AuthService, metrics *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))

	staff := middleware.RBAC(models.RoleAdmin, models.RoleTeacher)
	admin := middleware.RBAC(models.RoleAdmin)
	anyRole := middleware.RBAC(models.RoleAdmin, models.RoleTeacher, models.RoleStudent, models.RoleParent)

	protected.POST("/ca-setups", admin, h.CASetup.Save)
	protected.GET("/ca-setups", staff, h.CASetup.Get)
	protected.PATCH("/ca-setups/:id", admin, h.CASetup.Update)

	protected.POST("/exams", staff, h.Exam.Create)
	protected.POST("/exams/auto-ca", staff, h.Exam.CreateAutoCA)
	protected.GET("/exams", staff, h.Exam.List)
	protected.GET("/exams/:id", staff, h.Exam.Get)
	protected.GET("/exams/:id/results", staff, h.Exam.Results)
	protected.PATCH("/exams/:id", staff, h.Exam.Update)
	protected.DELETE("/exams/:id", admin, h.Exam.Delete)

	protected.POST("/grades", staff, h.Grade.Record)
	protected.POST("/grades/bulk", staff, h.Grade.BulkRecord)
	protected.POST("/grades/scores", staff, h.Grade.AddScores)
	protected.GET("/grades", staff, h.Grade.List)

	protected.POST("/attendance", staff, h.Attendance.Record)
	protected.POST("/attendance/bulk", staff, h.Attendance.BulkRecord)

	protected.GET("/reports/report-card/:studentId", anyRole, h.Report.ReportCard)
	protected.GET("/reports/report-card/:studentId/export", anyRole, h.Report.ExportReportCard)
	protected.GET("/reports/class/:classId", staff, h.Report.ClassReport)
	protected.GET("/reports/class/:classId/export", staff, h.Report.ExportClassReport)
	protected.GET("/reports/attendance", anyRole, h.Report.AttendanceReport)

	protected.POST("/parents/links", admin, h.Parent.Link)

	return r
}
