package lmsclient

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// View is everything a UI needs to render one assignment for one student.
type View struct {
	Assignment        reconcile.Assignment
	Submission        *reconcile.Submission
	Eligibility       reconcile.Eligibility
	RemainingAttempts int
	DaysLate          int
	// Decision is nil when PenaltiesUnavailable is set.
	Decision             *reconcile.PenaltyDecision
	PenaltiesUnavailable bool
	PenaltiesErr         error
	// SubmissionErr records a failed submission read; the view is then
	// evaluated as if no submission exists and the submit action is hidden.
	SubmissionErr error
	Presentation  reconcile.Presentation
}

// Load reads the assignment, then the submission and penalties concurrently,
// and reconciles them. Only an assignment failure or cancellation aborts.
func (c *Client) Load(ctx context.Context, assignmentID, studentID uint) (*View, error) {
	assignment, err := c.Assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	var (
		submission    *reconcile.Submission
		submissionErr error
		sources       reconcile.PenaltySources
		penaltiesErr  error
	)

	var group errgroup.Group
	group.Go(func() error {
		submission, submissionErr = c.CurrentSubmission(ctx, assignmentID, studentID)
		return nil
	})
	group.Go(func() error {
		sources, penaltiesErr = c.Penalties(ctx, assignmentID)
		return nil
	})
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := c.now()
	view := &View{
		Assignment:    assignment,
		Submission:    submission,
		SubmissionErr: submissionErr,
		PenaltiesErr:  penaltiesErr,
	}
	view.Eligibility = reconcile.EvaluateEligibility(assignment, submission, now)
	view.RemainingAttempts = reconcile.RemainingAttempts(assignment, submission)

	reference := now
	if submission != nil {
		reference = submission.SubmittedAt
	}
	view.DaysLate = reconcile.DaysLate(assignment.DueDate, reference)

	if penaltiesErr != nil {
		view.PenaltiesUnavailable = true
		c.logger.Warn().Err(penaltiesErr).Uint("assignment_id", assignmentID).Msg("penalties unavailable")
	} else {
		decision := reconcile.AggregatePenalties(view.DaysLate, sources)
		view.Decision = &decision
	}

	view.Presentation = reconcile.Present(assignment, submission, view.Eligibility, view.Decision)
	if submissionErr != nil {
		view.Presentation = view.Presentation.WithoutSubmissionState()
	}
	return view, nil
}
