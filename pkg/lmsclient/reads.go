package lmsclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// Assignment fetches assignment metadata.
func (c *Client) Assignment(ctx context.Context, id uint) (reconcile.Assignment, error) {
	var assignment reconcile.Assignment
	err := c.read(ctx, "assignment", fmt.Sprintf("/assignments/%d", id), nil, assignmentSchema, &assignment)
	return assignment, err
}

// CurrentSubmission returns the student's submission for the assignment, or
// nil when none exists yet. A zero studentID means the caller.
func (c *Client) CurrentSubmission(ctx context.Context, assignmentID, studentID uint) (*reconcile.Submission, error) {
	query := url.Values{"assignment": {idString(assignmentID)}}
	if studentID != 0 {
		query.Set("student", idString(studentID))
	}

	var submission reconcile.Submission
	if err := c.read(ctx, "current submission", "/submissions", query, submissionSchema, &submission); err != nil {
		if KindOf(err) == KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

// Penalties collects the flat penalties, the variation penalty and its ranges
// configured for an assignment.
func (c *Client) Penalties(ctx context.Context, assignmentID uint) (reconcile.PenaltySources, error) {
	sources := reconcile.PenaltySources{
		Flat:   []reconcile.FlatPenalty{},
		Ranges: []reconcile.PenaltyRange{},
	}
	byAssignment := url.Values{"assignment": {idString(assignmentID)}}

	if err := c.read(ctx, "flat penalties", "/penalties", byAssignment, flatPenaltiesSchema, &sources.Flat); err != nil {
		return reconcile.PenaltySources{}, err
	}

	var variation reconcile.VariationPenalty
	if err := c.read(ctx, "variation penalty", "/variation-penalties", byAssignment, variationPenaltySchema, &variation); err != nil {
		if KindOf(err) == KindNotFound {
			return sources, nil
		}
		return reconcile.PenaltySources{}, err
	}
	sources.Variation = &variation

	byVariation := url.Values{"variation_penalty": {idString(variation.ID)}}
	if err := c.read(ctx, "penalty ranges", "/penalty-ranges", byVariation, penaltyRangesSchema, &sources.Ranges); err != nil {
		return reconcile.PenaltySources{}, err
	}

	return sources, nil
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
