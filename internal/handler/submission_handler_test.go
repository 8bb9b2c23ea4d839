package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/internal/models"
	"github.com/noah-isme/gema-lms/internal/utils"
)

func TestSubmissionLifecycleUntilAttemptsExhausted(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 2, "pdf")
	student := token(t, studentID, middleware.RoleStudent)

	resp := env.doMultipart(t, http.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": fmt.Sprint(assignment.ID),
		"title":         "Draft",
		"text":          "first pass",
	}, []upload{{name: "essay.pdf", content: samplePDF}}, student)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created envelope[dto.SubmissionResponse]
	decodeResponse(t, resp, &created)
	require.Equal(t, 1, created.Data.ObtainedAttempts)
	require.Len(t, created.Data.Files, 1)
	require.Equal(t, "application/pdf", created.Data.Files[0].ContentType)

	path := fmt.Sprintf("/api/v1/submissions/%d", created.Data.ID)
	resp = env.doMultipart(t, http.MethodPatch, path, map[string]string{"title": "Final"}, nil, student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated envelope[dto.SubmissionResponse]
	decodeResponse(t, resp, &updated)
	require.Equal(t, 2, updated.Data.ObtainedAttempts)
	require.Equal(t, "Final", updated.Data.Title)

	resp = env.doMultipart(t, http.MethodPatch, path, map[string]string{"title": "Too late"}, nil, student)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var closed envelope[any]
	decodeResponse(t, resp, &closed)
	require.Equal(t, utils.CodeAttemptsExhausted, closed.Code)

	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/submissions?assignment=%d", assignment.ID), nil, student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var current envelope[dto.SubmissionResponse]
	decodeResponse(t, resp, &current)
	require.Equal(t, "Final", current.Data.Title)
	require.Equal(t, 2, current.Data.ObtainedAttempts)
}

func TestSubmissionRejectedAfterDeadline(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 3)
	require.NoError(t, env.db.Model(&models.Assignment{}).Where("id = ?", assignment.ID).
		Update("due_date", time.Now().Add(-time.Hour)).Error)

	resp := env.doMultipart(t, http.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": fmt.Sprint(assignment.ID),
		"text":          "late work",
	}, nil, token(t, studentID, middleware.RoleStudent))
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var body envelope[any]
	decodeResponse(t, resp, &body)
	require.Equal(t, utils.CodeDeadlinePassed, body.Code)
}

func TestSubmissionFileValidation(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 3, "pdf")
	student := token(t, studentID, middleware.RoleStudent)
	fields := map[string]string{"assignment_id": fmt.Sprint(assignment.ID)}

	resp := env.doMultipart(t, http.MethodPost, "/api/v1/submissions", fields,
		[]upload{{name: "notes.docx", content: "plain"}}, student)
	require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	resp = env.doMultipart(t, http.MethodPost, "/api/v1/submissions", fields,
		[]upload{{name: "essay.pdf", content: elfContents}}, student)
	require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
	var body envelope[any]
	decodeResponse(t, resp, &body)
	require.Equal(t, utils.CodeValidationFailed, body.Code)

	require.Empty(t, env.uploader.names)

	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/submissions?assignment=%d", assignment.ID), nil, student)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmissionRoleChecks(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 2)
	fields := map[string]string{"assignment_id": fmt.Sprint(assignment.ID), "text": "hello"}

	resp := env.doMultipart(t, http.MethodPost, "/api/v1/submissions", fields, nil, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = env.doMultipart(t, http.MethodPost, "/api/v1/submissions", fields, nil, token(t, teacherID, middleware.RoleTeacher))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.doMultipart(t, http.MethodPost, "/api/v1/submissions", fields, nil, token(t, studentID, middleware.RoleStudent))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created envelope[dto.SubmissionResponse]
	decodeResponse(t, resp, &created)

	other := token(t, otherPupil, middleware.RoleStudent)
	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/submissions?assignment=%d&student=%d", assignment.ID, studentID), nil, other)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.doMultipart(t, http.MethodPatch, fmt.Sprintf("/api/v1/submissions/%d", created.Data.ID), map[string]string{"text": "hijack"}, nil, other)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	staff := token(t, teacherID, middleware.RoleTeacher)
	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/submissions?assignment=%d&student=%d", assignment.ID, studentID), nil, staff)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSubmissionGrading(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 2)
	student := token(t, studentID, middleware.RoleStudent)
	staff := token(t, teacherID, middleware.RoleTeacher)

	resp := env.doMultipart(t, http.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": fmt.Sprint(assignment.ID),
		"text":          "answer",
	}, nil, student)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created envelope[dto.SubmissionResponse]
	decodeResponse(t, resp, &created)
	gradePath := fmt.Sprintf("/api/v1/submissions/%d/grade", created.Data.ID)

	marks := 150.0
	resp = env.doJSON(t, http.MethodPatch, gradePath, dto.SubmissionGradeRequest{Marks: &marks}, staff)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPatch, gradePath, dto.SubmissionGradeRequest{Marks: &marks}, student)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	marks = 87.5
	feedback := "Clear argument"
	resp = env.doJSON(t, http.MethodPatch, gradePath, dto.SubmissionGradeRequest{Marks: &marks, Feedback: &feedback}, staff)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var graded envelope[dto.SubmissionResponse]
	decodeResponse(t, resp, &graded)
	require.NotNil(t, graded.Data.ObtainedMarks)
	require.Equal(t, 87.5, *graded.Data.ObtainedMarks)
	require.Equal(t, teacherID, *graded.Data.GradedBy)
}

func TestSubmissionFileDeleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 2)
	student := token(t, studentID, middleware.RoleStudent)

	resp := env.doMultipart(t, http.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": fmt.Sprint(assignment.ID),
	}, []upload{{name: "essay.pdf", content: samplePDF}}, student)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created envelope[dto.SubmissionResponse]
	decodeResponse(t, resp, &created)
	path := fmt.Sprintf("/api/v1/submission-files/%d", created.Data.Files[0].ID)

	resp = env.doJSON(t, http.MethodDelete, path, nil, token(t, otherPupil, middleware.RoleStudent))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	for _, deleted := range []bool{true, false} {
		resp = env.doJSON(t, http.MethodDelete, path, nil, student)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var body envelope[dto.FileDeleteResponse]
		decodeResponse(t, resp, &body)
		require.Equal(t, deleted, body.Data.Deleted)
	}

	env.uploader.mu.Lock()
	defer env.uploader.mu.Unlock()
	require.Equal(t, []string{created.Data.Files[0].FileURL}, env.uploader.deleted)
}
