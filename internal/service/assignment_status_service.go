package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/repository"
	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// AssignmentStatusService reconciles an assignment, a student's submission and
// the late penalties into one view.
type AssignmentStatusService interface {
	Status(ctx context.Context, assignmentID, studentID uint) (dto.AssignmentStatusResponse, error)
}

type assignmentStatusService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	penalties   PenaltyService
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentStatusService constructs the reconciliation view service.
func NewAssignmentStatusService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, penalties PenaltyService, logger zerolog.Logger) AssignmentStatusService {
	return &assignmentStatusService{
		assignments: assignments,
		submissions: submissions,
		penalties:   penalties,
		logger:      logger.With().Str("component", "assignment_status_service").Logger(),
		now:         time.Now,
	}
}

// Status only fails when the assignment cannot be read. Unreadable penalties
// or submissions are flagged as unavailable and the rest is still reported.
func (s *assignmentStatusService) Status(ctx context.Context, assignmentID, studentID uint) (dto.AssignmentStatusResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentStatusResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentStatusResponse{}, err
	}
	domainAssignment := assignment.ToDomain()

	response := dto.AssignmentStatusResponse{Assignment: dto.NewAssignmentResponse(assignment)}

	var current *reconcile.Submission
	submission, err := s.submissions.GetByAssignmentAndStudent(ctx, assignmentID, studentID)
	switch {
	case err == nil:
		domain := submission.ToDomain()
		current = &domain
		view := dto.NewSubmissionResponse(submission)
		response.Submission = &view
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Uint("student_id", studentID).Msg("submission unavailable")
		response.SubmissionUnavailable = true
	}

	now := s.now()
	reference := now
	if current != nil {
		reference = current.SubmittedAt
	}

	var decision *reconcile.PenaltyDecision
	sources, err := s.penalties.Sources(ctx, assignmentID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("penalty sources unavailable")
		response.PenaltiesUnavailable = true
	} else {
		aggregated := reconcile.AggregatePenalties(reconcile.DaysLate(domainAssignment.DueDate, reference), sources)
		decision = &aggregated
	}

	response.Eligibility = reconcile.EvaluateEligibility(domainAssignment, current, now)
	response.RemainingAttempts = reconcile.RemainingAttempts(domainAssignment, current)
	response.Penalty = decision
	response.Presentation = reconcile.Present(domainAssignment, current, response.Eligibility, decision)
	if response.SubmissionUnavailable {
		response.Presentation = response.Presentation.WithoutSubmissionState()
	}

	return response, nil
}
