package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

func TestPenaltyConfigurationAndAggregation(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 1)
	staff := token(t, teacherID, middleware.RoleTeacher)
	student := token(t, studentID, middleware.RoleStudent)

	resp := env.doJSON(t, http.MethodPost, "/api/v1/penalties", dto.PenaltyCreateRequest{
		AssignmentID: assignment.ID, Percentage: 15, Description: "Late hand-in",
	}, student)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/v1/penalties", dto.PenaltyCreateRequest{
		AssignmentID: assignment.ID, Percentage: 15, Description: "Late hand-in",
	}, staff)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/v1/variation-penalties", dto.VariationPenaltyCreateRequest{
		AssignmentID: assignment.ID, Name: "Sliding scale",
	}, staff)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var variation envelope[reconcile.VariationPenalty]
	decodeResponse(t, resp, &variation)

	resp = env.doJSON(t, http.MethodPost, "/api/v1/variation-penalties", dto.VariationPenaltyCreateRequest{
		AssignmentID: assignment.ID, Name: "Second",
	}, staff)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	for _, tier := range []dto.PenaltyRangeCreateRequest{
		{VariationPenaltyID: variation.Data.ID, DaysLate: 1, Percentage: 10},
		{VariationPenaltyID: variation.Data.ID, DaysLate: 5, Percentage: 25},
	} {
		resp = env.doJSON(t, http.MethodPost, "/api/v1/penalty-ranges", tier, staff)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/penalty-ranges?variation_penalty=%d", variation.Data.ID), nil, student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var ranges envelope[[]reconcile.PenaltyRange]
	decodeResponse(t, resp, &ranges)
	require.Len(t, ranges.Data, 2)

	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d/penalty?days_late=3", assignment.ID), nil, student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var decision envelope[reconcile.PenaltyDecision]
	decodeResponse(t, resp, &decision)
	require.Len(t, decision.Data.Items, 2)
	require.Equal(t, 15.0, decision.Data.Items[0].Percentage)
	require.Equal(t, 10.0, decision.Data.Items[1].Percentage)

	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d/penalty?days_late=0", assignment.ID), nil, student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &decision)
	require.Empty(t, decision.Data.Items)
}

func TestPenaltyLookupsAndErrors(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(t, 1)
	student := token(t, studentID, middleware.RoleStudent)
	staff := token(t, teacherID, middleware.RoleTeacher)

	resp := env.doJSON(t, http.MethodGet, "/api/v1/penalties", nil, student)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/penalties?assignment=%d", assignment.ID), nil, student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var flat envelope[[]reconcile.FlatPenalty]
	decodeResponse(t, resp, &flat)
	require.Empty(t, flat.Data)

	resp = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/variation-penalties?assignment=%d", assignment.ID), nil, student)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/v1/penalties", dto.PenaltyCreateRequest{
		AssignmentID: assignment.ID, Percentage: 140,
	}, staff)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = env.doJSON(t, http.MethodDelete, "/api/v1/penalty-ranges/77", nil, staff)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
