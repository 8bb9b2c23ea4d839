package dto

import (
	"github.com/noah-isme/gema-lms/internal/models"
	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// PenaltyCreateRequest creates a flat penalty.
type PenaltyCreateRequest struct {
	AssignmentID uint    `json:"assignment_id" validate:"required,gt=0"`
	Percentage   float64 `json:"percentage" validate:"gt=0,lte=100"`
	Description  string  `json:"description" validate:"omitempty,max=255"`
}

// PenaltyUpdateRequest updates a flat penalty.
type PenaltyUpdateRequest struct {
	Percentage  *float64 `json:"percentage" validate:"omitempty,gt=0,lte=100"`
	Description *string  `json:"description" validate:"omitempty,max=255"`
}

// VariationPenaltyCreateRequest creates a tiered penalty container.
type VariationPenaltyCreateRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,min=1,max=255"`
}

// PenaltyRangeCreateRequest creates a tier for a variation penalty.
type PenaltyRangeCreateRequest struct {
	VariationPenaltyID uint    `json:"variation_penalty_id" validate:"required,gt=0"`
	DaysLate           int     `json:"days_late" validate:"gte=0"`
	Percentage         float64 `json:"percentage" validate:"gt=0,lte=100"`
}

// PenaltyRangeUpdateRequest updates a tier.
type PenaltyRangeUpdateRequest struct {
	DaysLate   *int     `json:"days_late" validate:"omitempty,gte=0"`
	Percentage *float64 `json:"percentage" validate:"omitempty,gt=0,lte=100"`
}

// NewFlatPenaltySlice converts flat penalty models to the wire type.
func NewFlatPenaltySlice(items []models.Penalty) []reconcile.FlatPenalty {
	result := make([]reconcile.FlatPenalty, 0, len(items))
	for _, item := range items {
		result = append(result, item.ToDomain())
	}
	return result
}

// NewPenaltyRangeSlice converts range models to the wire type.
func NewPenaltyRangeSlice(items []models.PenaltyRange) []reconcile.PenaltyRange {
	result := make([]reconcile.PenaltyRange, 0, len(items))
	for _, item := range items {
		result = append(result, item.ToDomain())
	}
	return result
}

// AssignmentStatusResponse is the server-side reconciliation view of one
// assignment for one student.
type AssignmentStatusResponse struct {
	Assignment            AssignmentResponse         `json:"assignment"`
	Submission            *SubmissionResponse        `json:"submission"`
	Eligibility           reconcile.Eligibility      `json:"eligibility"`
	RemainingAttempts     int                        `json:"remaining_attempts"`
	Penalty               *reconcile.PenaltyDecision `json:"penalty"`
	PenaltiesUnavailable  bool                       `json:"penalties_unavailable"`
	SubmissionUnavailable bool                       `json:"submission_unavailable"`
	Presentation          reconcile.Presentation     `json:"presentation"`
}
