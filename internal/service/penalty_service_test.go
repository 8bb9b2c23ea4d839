package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/models"
)

func newPenaltyFixture(t *testing.T) (PenaltyService, *memoryPenaltyRepo, models.Assignment, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	assignments := newMemoryAssignmentRepo()
	assignment := models.Assignment{CourseID: 1, Title: "Essay", DueDate: time.Now().Add(time.Hour), Attempts: 1}
	require.NoError(t, assignments.Create(context.Background(), &assignment))

	repo := newMemoryPenaltyRepo()
	svc := NewPenaltyService(repo, assignments, testValidator(), client, time.Minute, testLogger())
	return svc, repo, assignment, server
}

func TestPenaltyServiceSourcesAreCachedAndInvalidated(t *testing.T) {
	svc, repo, assignment, server := newPenaltyFixture(t)
	ctx := context.Background()

	flat, err := svc.CreateFlat(ctx, dto.PenaltyCreateRequest{AssignmentID: assignment.ID, Percentage: 15, Description: "Late hand-in"})
	require.NoError(t, err)

	sources, err := svc.Sources(ctx, assignment.ID)
	require.NoError(t, err)
	require.Len(t, sources.Flat, 1)
	require.Nil(t, sources.Variation)
	require.True(t, server.Exists(penaltyCacheKey(assignment.ID)))

	// Writes behind the service's back are invisible until invalidation.
	repo.flats[99] = models.Penalty{ID: 99, AssignmentID: assignment.ID, Percentage: 5}
	cached, err := svc.Sources(ctx, assignment.ID)
	require.NoError(t, err)
	require.Len(t, cached.Flat, 1)

	percentage := 20.0
	updated, err := svc.UpdateFlat(ctx, flat.ID, dto.PenaltyUpdateRequest{Percentage: &percentage})
	require.NoError(t, err)
	require.Equal(t, 20.0, updated.Percentage)
	require.False(t, server.Exists(penaltyCacheKey(assignment.ID)))

	fresh, err := svc.Sources(ctx, assignment.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Flat, 2)
}

func TestPenaltyServiceVariationLifecycle(t *testing.T) {
	svc, _, assignment, _ := newPenaltyFixture(t)
	ctx := context.Background()

	_, err := svc.GetVariation(ctx, assignment.ID)
	require.ErrorIs(t, err, ErrVariationPenaltyNotFound)

	variation, err := svc.CreateVariation(ctx, dto.VariationPenaltyCreateRequest{AssignmentID: assignment.ID, Name: "Sliding scale"})
	require.NoError(t, err)

	_, err = svc.CreateVariation(ctx, dto.VariationPenaltyCreateRequest{AssignmentID: assignment.ID, Name: "Again"})
	require.ErrorIs(t, err, ErrVariationPenaltyExists)

	_, err = svc.CreateRange(ctx, dto.PenaltyRangeCreateRequest{VariationPenaltyID: variation.ID, DaysLate: 5, Percentage: 25})
	require.NoError(t, err)
	_, err = svc.CreateRange(ctx, dto.PenaltyRangeCreateRequest{VariationPenaltyID: variation.ID, DaysLate: 1, Percentage: 10})
	require.NoError(t, err)

	ranges, err := svc.ListRanges(ctx, variation.ID)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	require.Equal(t, 1, ranges[0].DaysLate)

	decision, err := svc.Aggregate(ctx, assignment.ID, 3)
	require.NoError(t, err)
	require.NotNil(t, decision.SelectedRange)
	require.Equal(t, 10.0, decision.SelectedRange.Percentage)

	decision, err = svc.Aggregate(ctx, assignment.ID, 0)
	require.NoError(t, err)
	require.False(t, decision.Penalized())

	require.NoError(t, svc.DeleteVariation(ctx, variation.ID))
	decision, err = svc.Aggregate(ctx, assignment.ID, 7)
	require.NoError(t, err)
	require.Nil(t, decision.SelectedRange)

	require.ErrorIs(t, svc.DeleteVariation(ctx, variation.ID), ErrVariationPenaltyNotFound)
}

func TestPenaltyServiceValidationAndMissingRecords(t *testing.T) {
	svc, _, assignment, _ := newPenaltyFixture(t)
	ctx := context.Background()

	_, err := svc.CreateFlat(ctx, dto.PenaltyCreateRequest{AssignmentID: assignment.ID, Percentage: 120})
	require.Error(t, err)

	_, err = svc.CreateFlat(ctx, dto.PenaltyCreateRequest{AssignmentID: 404, Percentage: 10})
	require.ErrorIs(t, err, ErrAssignmentNotFound)

	_, err = svc.CreateRange(ctx, dto.PenaltyRangeCreateRequest{VariationPenaltyID: 404, DaysLate: 1, Percentage: 10})
	require.ErrorIs(t, err, ErrVariationPenaltyNotFound)

	require.ErrorIs(t, svc.DeleteFlat(ctx, 404), ErrPenaltyNotFound)
	require.ErrorIs(t, svc.DeleteRange(ctx, 404), ErrPenaltyRangeNotFound)

	_, err = svc.Aggregate(ctx, 404, 2)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestPenaltyServiceWorksWithoutCache(t *testing.T) {
	assignments := newMemoryAssignmentRepo()
	assignment := models.Assignment{Title: "Essay", DueDate: time.Now(), Attempts: 1}
	require.NoError(t, assignments.Create(context.Background(), &assignment))

	svc := NewPenaltyService(newMemoryPenaltyRepo(), assignments, testValidator(), nil, 0, testLogger())
	_, err := svc.CreateFlat(context.Background(), dto.PenaltyCreateRequest{AssignmentID: assignment.ID, Percentage: 10})
	require.NoError(t, err)

	decision, err := svc.Aggregate(context.Background(), assignment.ID, 1)
	require.NoError(t, err)
	require.Len(t, decision.Items, 1)
}
