package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/config"
	"github.com/noah-isme/gema-lms/internal/handler"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler       *handler.CourseHandler
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	PenaltyHandler      *handler.PenaltyHandler
	TimeSlotHandler     *handler.TimeSlotHandler
	AnnouncementHandler *handler.AnnouncementHandler
	JWTMiddleware       fiber.Handler
	DB                  *gorm.DB
}

// SubmissionWriteLimit bounds student submission writes per user.
func SubmissionWriteLimit() fiber.Handler {
	return middleware.RateLimit("submission-write", 30, time.Minute)
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	secured := api.Group("", jwtMiddleware)

	courses := secured.Group("/courses")
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(courses)
	}
	if deps.TimeSlotHandler != nil {
		deps.TimeSlotHandler.RegisterCourse(courses)
		deps.TimeSlotHandler.Register(secured.Group("/time-slots"))
	}
	if deps.AnnouncementHandler != nil {
		deps.AnnouncementHandler.RegisterCourse(courses)
		deps.AnnouncementHandler.Register(secured.Group("/announcements"))
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(secured.Group("/assignments"))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(secured.Group("/submissions"))
		deps.SubmissionHandler.RegisterFiles(secured.Group("/submission-files"))
	}

	if deps.PenaltyHandler != nil {
		deps.PenaltyHandler.RegisterFlat(secured.Group("/penalties"))
		deps.PenaltyHandler.RegisterVariations(secured.Group("/variation-penalties"))
		deps.PenaltyHandler.RegisterRanges(secured.Group("/penalty-ranges"))
	}
}
