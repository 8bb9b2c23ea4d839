package models

import (
	"time"

	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// Penalty is a flat late penalty attached to an assignment.
type Penalty struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"index;not null" json:"assignment_id"`
	Percentage   float64   `gorm:"not null" json:"percentage"`
	Description  string    `gorm:"size:255" json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VariationPenalty is a named, tiered late-penalty schedule. An assignment has
// at most one.
type VariationPenalty struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AssignmentID uint           `gorm:"uniqueIndex;not null" json:"assignment_id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Ranges       []PenaltyRange `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// PenaltyRange is one tier of a variation penalty.
type PenaltyRange struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	VariationPenaltyID uint      `gorm:"index;not null" json:"variation_penalty_id"`
	DaysLate           int       `gorm:"not null" json:"days_late"`
	Percentage         float64   `gorm:"not null" json:"percentage"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ToDomain converts the model into the shared reconciliation type.
func (p Penalty) ToDomain() reconcile.FlatPenalty {
	return reconcile.FlatPenalty{
		ID:           p.ID,
		AssignmentID: p.AssignmentID,
		Percentage:   p.Percentage,
		Description:  p.Description,
	}
}

// ToDomain converts the model into the shared reconciliation type.
func (v VariationPenalty) ToDomain() reconcile.VariationPenalty {
	return reconcile.VariationPenalty{
		ID:           v.ID,
		AssignmentID: v.AssignmentID,
		Name:         v.Name,
	}
}

// ToDomain converts the model into the shared reconciliation type.
func (r PenaltyRange) ToDomain() reconcile.PenaltyRange {
	return reconcile.PenaltyRange{
		ID:                 r.ID,
		VariationPenaltyID: r.VariationPenaltyID,
		DaysLate:           r.DaysLate,
		Percentage:         r.Percentage,
	}
}
