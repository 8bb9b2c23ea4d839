package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms/internal/config"
	"github.com/noah-isme/gema-lms/internal/database"
	"github.com/noah-isme/gema-lms/internal/handler"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/internal/observability"
	"github.com/noah-isme/gema-lms/internal/repository"
	"github.com/noah-isme/gema-lms/internal/router"
	"github.com/noah-isme/gema-lms/internal/service"
	cloud "github.com/noah-isme/gema-lms/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; caching disabled")
	}

	var uploader service.FileUploader
	cloudinaryService, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	switch {
	case errors.Is(err, cloud.ErrNotConfigured):
		logger.Warn().Msg("cloudinary not configured; file attachments disabled")
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	default:
		uploader = cloudinaryService
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	penaltyRepo := repository.NewPenaltyRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)

	courseService := service.NewCourseService(courseRepo, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, validate, logger)
	penaltyService := service.NewPenaltyService(penaltyRepo, assignmentRepo, validate, redisClient, cfg.PenaltyCacheTTL, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, uploader, logger)
	statusService := service.NewAssignmentStatusService(assignmentRepo, submissionRepo, penaltyService, logger)
	timeSlotService := service.NewTimeSlotService(timeSlotRepo, courseRepo, validate, logger)
	announcementService := service.NewAnnouncementService(announcementRepo, courseRepo, validate, redisClient, cfg.AnnouncementCacheTTL, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxUploadMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:       handler.NewCourseHandler(courseService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, statusService, penaltyService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger, router.SubmissionWriteLimit()),
		PenaltyHandler:      handler.NewPenaltyHandler(penaltyService, logger),
		TimeSlotHandler:     handler.NewTimeSlotHandler(timeSlotService, logger),
		AnnouncementHandler: handler.NewAnnouncementHandler(announcementService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		DB:                  db,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
