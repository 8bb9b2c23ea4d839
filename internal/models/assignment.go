package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// Assignment represents a course assignment definition.
type Assignment struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	CourseID         uint                        `gorm:"index;not null" json:"course_id"`
	Title            string                      `gorm:"size:255;not null" json:"title"`
	Description      string                      `gorm:"type:text" json:"description"`
	DueDate          time.Time                   `gorm:"not null" json:"due_date"`
	MaxMarks         float64                     `gorm:"not null;default:100" json:"max_marks"`
	AllowedFileTypes datatypes.JSONSlice[string] `json:"allowed_file_types"`
	MaxFileSize      int64                       `gorm:"not null" json:"max_file_size"`
	Attempts         int                         `gorm:"not null;default:1" json:"attempts"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// AllowsFile reports whether the filename's extension is accepted.
func (a Assignment) AllowsFile(name string) bool {
	return a.ToDomain().AllowsFile(name)
}

// ToDomain converts the model into the shared reconciliation type.
func (a Assignment) ToDomain() reconcile.Assignment {
	types := make([]string, 0, len(a.AllowedFileTypes))
	types = append(types, a.AllowedFileTypes...)
	return reconcile.Assignment{
		ID:               a.ID,
		CourseID:         a.CourseID,
		Title:            a.Title,
		Description:      a.Description,
		DueDate:          a.DueDate,
		MaxMarks:         a.MaxMarks,
		AllowedFileTypes: types,
		MaxFileSize:      a.MaxFileSize,
		Attempts:         a.Attempts,
	}
}
