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
)

func TestAnnouncementCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 1)
	staff := token(t, teacherID, middleware.RoleTeacher)
	student := token(t, studentID, middleware.RoleStudent)

	resp := env.doJSON(t, http.MethodPost, "/api/v1/announcements", dto.AnnouncementCreateRequest{
		CourseID: assignment.CourseID, Title: "Welcome", Body: "<p>Hello<script>alert(1)</script></p>",
	}, staff)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created envelope[dto.AnnouncementResponse]
	decodeResponse(t, resp, &created)
	require.NotContains(t, created.Data.Body, "<script>")

	future := time.Now().Add(24 * time.Hour)
	resp = env.doJSON(t, http.MethodPost, "/api/v1/announcements", dto.AnnouncementCreateRequest{
		CourseID: assignment.CourseID, Title: "Scheduled", Body: "later", StartsAt: &future,
	}, staff)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/v1/announcements", dto.AnnouncementCreateRequest{
		CourseID: assignment.CourseID, Title: "Nope", Body: "students cannot post",
	}, student)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/courses/%d/announcements?page=1&pageSize=10", assignment.CourseID), nil, student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "false", resp.Header.Get("X-Cache-Hit"))
	var list envelope[dto.AnnouncementListResponse]
	decodeResponse(t, resp, &list)
	require.Len(t, list.Data.Items, 1)
	require.Equal(t, "Welcome", list.Data.Items[0].Title)
	require.EqualValues(t, 1, list.Data.Pagination.TotalItems)

	resp = env.doJSON(t, http.MethodGet, "/api/v1/courses/31337/announcements", nil, student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &list)
	require.Empty(t, list.Data.Items)
}
