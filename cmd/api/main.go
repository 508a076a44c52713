package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/school-core-api/api/swagger"
	"github.com/noah-isme/school-core-api/internal/directory"
	"github.com/noah-isme/school-core-api/internal/handler"
	"github.com/noah-isme/school-core-api/internal/repository"
	"github.com/noah-isme/school-core-api/internal/router"
	"github.com/noah-isme/school-core-api/internal/service"
	"github.com/noah-isme/school-core-api/pkg/cache"
	"github.com/noah-isme/school-core-api/pkg/config"
	"github.com/noah-isme/school-core-api/pkg/database"
	"github.com/noah-isme/school-core-api/pkg/logger"
)

// @title School Core API
// @version 1.0.0
// @description Multi-tenant exam, grade, attendance and report service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The report cache is an optimization, not a dependency.
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	students := directory.NewStudentClient(cfg.Directories.StudentBaseURL, cfg.Directories.Timeout, logr, metricsSvc)
	classes := directory.NewClassClient(cfg.Directories.ClassBaseURL, cfg.Directories.Timeout, logr, metricsSvc)
	profiles := directory.NewProfileClient(cfg.Directories.ProfileBaseURL, cfg.Directories.Timeout, logr, metricsSvc)

	users := repository.NewUserRepository(db)
	caSetups := repository.NewCASetupRepository(db)
	exams := repository.NewExamRepository(db)
	examResults := repository.NewExamResultRepository(db)
	records := repository.NewAcademicRecordRepository(db)
	attendance := repository.NewAttendanceRepository(db)
	assignments := repository.NewTeacherSubjectRepository(db)
	parentLinks := repository.NewParentStudentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, metricsSvc, logr)
	defer cacheRepo.Close() //nolint:errcheck

	authSvc := service.NewAuthService(users, cfg.JWT, validate, logr)
	accessSvc := service.NewAccessService(assignments, parentLinks, students, classes, logr)
	caSetupSvc := service.NewCASetupService(caSetups, validate, logr)
	examSvc := service.NewExamService(exams, caSetups, examResults, classes, validate, logr)
	gradeSvc := service.NewGradeService(records, exams, examResults, students, accessSvc, cacheRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendance, students, accessSvc, cacheRepo, validate, logr)
	reportSvc := service.NewReportService(records, attendance, exams, students, classes, accessSvc, cacheRepo, cfg.Reports, logr)
	parentSvc := service.NewParentLinkService(parentLinks, students, profiles, validate, logr)

	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		CASetup:    handler.NewCASetupHandler(caSetupSvc),
		Exam:       handler.NewExamHandler(examSvc),
		Grade:      handler.NewGradeHandler(gradeSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Report:     handler.NewReportHandler(reportSvc),
		Parent:     handler.NewParentHandler(parentSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	}

	r := router.New(cfg, logr, authSvc, metricsSvc, handlers)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
