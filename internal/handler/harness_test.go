package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/config"
	"github.com/noah-isme/gema-lms/internal/database"
	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/handler"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/internal/repository"
	"github.com/noah-isme/gema-lms/internal/router"
	"github.com/noah-isme/gema-lms/internal/service"
)

const (
	testSecret  = "handler-test-secret"
	teacherID   = uint(900)
	studentID   = uint(11)
	otherPupil  = uint(12)
	samplePDF   = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	elfContents = "\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00"
)

type recordingUploader struct {
	mu      sync.Mutex
	names   []string
	deleted []string
}

func (u *recordingUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, name)
	return "https://files.example.com/" + name, nil
}

func (u *recordingUploader) Delete(_ context.Context, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, url)
	return nil
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	uploader *recordingUploader
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Data    T      `json:"data"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	uploader := &recordingUploader{}

	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	penaltyRepo := repository.NewPenaltyRepository(db)

	courseService := service.NewCourseService(courseRepo, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, validate, logger)
	penaltyService := service.NewPenaltyService(penaltyRepo, assignmentRepo, validate, nil, time.Minute, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, uploader, logger)
	statusService := service.NewAssignmentStatusService(assignmentRepo, submissionRepo, penaltyService, logger)
	timeSlotService := service.NewTimeSlotService(repository.NewTimeSlotRepository(db), courseRepo, validate, logger)
	announcementService := service.NewAnnouncementService(repository.NewAnnouncementRepository(db), courseRepo, validate, nil, time.Minute, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test"}, router.Dependencies{
		CourseHandler:       handler.NewCourseHandler(courseService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, statusService, penaltyService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		PenaltyHandler:      handler.NewPenaltyHandler(penaltyService, logger),
		TimeSlotHandler:     handler.NewTimeSlotHandler(timeSlotService, logger),
		AnnouncementHandler: handler.NewAnnouncementHandler(announcementService, logger),
		JWTMiddleware:       middleware.JWTProtected(testSecret),
		DB:                  db,
	})

	return &testEnv{app: app, db: db, uploader: uploader}
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	signed, err := middleware.IssueToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, req *http.Request, bearer string) *http.Response {
	t.Helper()
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload interface{}, bearer string) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.do(t, req, bearer)
}

type upload struct {
	name    string
	content string
}

func (e *testEnv) doMultipart(t *testing.T, method, path string, fields map[string]string, files []upload, bearer string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, file := range files {
		part, err := writer.CreateFormFile("files", file.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(file.content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	return e.do(t, req, bearer)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target), string(data))
}

// seedAssignment creates a course and an assignment through the API as a teacher.
func (e *testEnv) seedAssignment(t *testing.T, attempts int, allowed ...string) dto.AssignmentResponse {
	t.Helper()
	staff := token(t, teacherID, middleware.RoleTeacher)

	resp := e.doJSON(t, http.MethodPost, "/api/v1/courses", dto.CourseCreateRequest{
		Code: "C-" + uuid.NewString()[:8],
		Name: "Software Engineering",
	}, staff)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var course envelope[dto.CourseResponse]
	decodeResponse(t, resp, &course)

	resp = e.doJSON(t, http.MethodPost, "/api/v1/assignments", dto.AssignmentCreateRequest{
		CourseID:         course.Data.ID,
		Title:            "Essay",
		DueDate:          time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		MaxMarks:         100,
		AllowedFileTypes: allowed,
		MaxFileSize:      1 << 20,
		Attempts:         attempts,
	}, staff)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var assignment envelope[dto.AssignmentResponse]
	decodeResponse(t, resp, &assignment)
	return assignment.Data
}
