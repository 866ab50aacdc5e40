package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/khaled-elsaeed/academic-operations-platform-sub001/api/swagger"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/handler"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/middleware"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/repository"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/service"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/cache"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/config"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/database"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/export"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/logger"
	corsmiddleware "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/middleware/requestid"
)

// @title Academic Operations Platform API
// @version 1.0.0
// @description Enrollment eligibility, scheduling and curriculum guidance services.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, guidance caching disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	termRepo := repository.NewTermRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	offeringRepo := repository.NewAvailableCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	exceptionRepo := repository.NewCreditExceptionRepository(db)
	planRepo := repository.NewStudyPlanRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, offeringRepo, studentRepo, termRepo, exceptionRepo, authSvc, cacheRepo, validate, logr)

	guidanceCache := metricsSvc.InstrumentGuidanceCache(nil)
	if cfg.Guidance.CacheEnabled && cacheRepo != nil {
		guidanceCache = metricsSvc.InstrumentGuidanceCache(cacheRepo)
	}
	guidanceSvc := service.NewGuidanceService(studentRepo, termRepo, enrollmentRepo, planRepo, courseRepo, authSvc, guidanceCache, cfg.Guidance.CacheTTL, logr)
	catalogSvc := service.NewCatalogService(offeringRepo, courseRepo, studentRepo, termRepo, enrollmentRepo, authSvc, logr)
	importSvc := service.NewImportService(enrollmentRepo, studentRepo, courseRepo, termRepo, offeringRepo, cacheRepo, cfg.Imports.MaxRows, validate, logr)

	csvExporter := export.NewCSVExporter()
	pdfExporter := export.NewPDFExporter()

	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc, csvExporter, pdfExporter)
	guidanceHandler := handler.NewGuidanceHandler(guidanceSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	importHandler := handler.NewImportHandler(importSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("", middleware.JWT(authSvc))
	secured.GET("/enrollments", enrollmentHandler.List)
	secured.POST("/enrollments", enrollmentHandler.Create)
	secured.DELETE("/enrollments/:id", enrollmentHandler.Delete)
	if cfg.Imports.Enabled {
		secured.POST("/enrollments/import", middleware.RequireRoles(models.RoleAdmin), importHandler.Import)
	}
	secured.GET("/students/:studentId/timetable", enrollmentHandler.Timetable)
	if cfg.Exports.Enabled {
		secured.GET("/students/:studentId/timetable/export", enrollmentHandler.ExportTimetable)
	}
	secured.GET("/students/:studentId/guidance", guidanceHandler.Report)
	secured.GET("/students/:studentId/available-courses", catalogHandler.ListForStudent)
	secured.DELETE("/available-courses/:id", middleware.RequireRoles(models.RoleAdmin), catalogHandler.DeleteOffering)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
