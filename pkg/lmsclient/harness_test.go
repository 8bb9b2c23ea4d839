package lmsclient_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/config"
	"github.com/noah-isme/gema-lms/internal/database"
	"github.com/noah-isme/gema-lms/internal/handler"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/internal/models"
	"github.com/noah-isme/gema-lms/internal/repository"
	"github.com/noah-isme/gema-lms/internal/router"
	"github.com/noah-isme/gema-lms/internal/service"
	"github.com/noah-isme/gema-lms/pkg/lmsclient"
)

const (
	apiSecret = "client-test-secret"
	studentID = uint(21)
	samplePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
)

// fiberTransport serves client requests straight from the fiber app.
type fiberTransport struct {
	app *fiber.App
}

func (t fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

type memoryUploader struct {
	mu    sync.Mutex
	count int
}

func (u *memoryUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.count++
	return "https://files.example.com/" + name, nil
}

func (u *memoryUploader) Delete(_ context.Context, _ string) error {
	return nil
}

func (u *memoryUploader) uploads() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}

type backend struct {
	app      *fiber.App
	db       *gorm.DB
	uploader *memoryUploader
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	uploader := &memoryUploader{}

	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	penaltyService := service.NewPenaltyService(repository.NewPenaltyRepository(db), assignmentRepo, validate, nil, time.Minute, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, uploader, logger)
	statusService := service.NewAssignmentStatusService(assignmentRepo, submissionRepo, penaltyService, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, statusService, penaltyService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		PenaltyHandler:    handler.NewPenaltyHandler(penaltyService, logger),
		JWTMiddleware:     middleware.JWTProtected(apiSecret),
	})

	return &backend{app: app, db: db, uploader: uploader}
}

func (b *backend) client(t *testing.T, opts ...lmsclient.Option) *lmsclient.Client {
	t.Helper()
	signed, err := middleware.IssueToken(apiSecret, studentID, middleware.RoleStudent, time.Hour)
	require.NoError(t, err)

	base := []lmsclient.Option{
		lmsclient.WithHTTPClient(&http.Client{Transport: fiberTransport{app: b.app}}),
		lmsclient.WithToken(signed),
		lmsclient.WithRetryBackoff(zeroBackOff),
	}
	client, err := lmsclient.New("http://lms.test/api/v1", append(base, opts...)...)
	require.NoError(t, err)
	return client
}

func (b *backend) seedAssignment(t *testing.T, due time.Time, attempts int, allowed ...string) models.Assignment {
	t.Helper()
	course := models.Course{Code: "C-" + uuid.NewString()[:8], Name: "Networks"}
	require.NoError(t, b.db.Create(&course).Error)

	assignment := models.Assignment{
		CourseID:         course.ID,
		Title:            "Packet capture report",
		DueDate:          due,
		MaxMarks:         100,
		AllowedFileTypes: datatypes.JSONSlice[string](allowed),
		MaxFileSize:      1 << 20,
		Attempts:         attempts,
	}
	require.NoError(t, b.db.Create(&assignment).Error)
	return assignment
}

func zeroBackOff() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}
