package models

import (
	"time"

	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// Submission is the single record a student holds for an assignment. Each
// accepted write increments ObtainedAttempts.
type Submission struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	AssignmentID     uint             `gorm:"not null;uniqueIndex:idx_submission_owner" json:"assignment_id"`
	StudentID        uint             `gorm:"not null;uniqueIndex:idx_submission_owner" json:"student_id"`
	Title            string           `gorm:"size:255" json:"title"`
	Text             string           `gorm:"type:text" json:"text"`
	SubmittedAt      time.Time        `json:"submitted_at"`
	ObtainedAttempts int              `gorm:"not null;default:0" json:"obtained_attempts"`
	ObtainedMarks    *float64         `json:"obtained_marks"`
	Feedback         *string          `gorm:"type:text" json:"feedback"`
	GradedBy         *uint            `json:"graded_by"`
	GradedAt         *time.Time       `json:"graded_at"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Files            []SubmissionFile `gorm:"constraint:OnDelete:CASCADE" json:"files"`
	Assignment       Assignment       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// SubmissionFile is an attachment owned by exactly one submission.
type SubmissionFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"index;not null" json:"submission_id"`
	FileURL      string    `gorm:"size:512;not null" json:"file_url"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	Size         int64     `json:"size"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsGraded reports whether marks have been recorded.
func (s Submission) IsGraded() bool {
	return s.ObtainedMarks != nil
}

// ToDomain converts the model into the shared reconciliation type.
func (s Submission) ToDomain() reconcile.Submission {
	files := make([]reconcile.SubmissionFile, 0, len(s.Files))
	for _, file := range s.Files {
		files = append(files, reconcile.SubmissionFile{
			ID:           file.ID,
			SubmissionID: file.SubmissionID,
			FileURL:      file.FileURL,
			FileName:     file.FileName,
		})
	}
	return reconcile.Submission{
		ID:               s.ID,
		AssignmentID:     s.AssignmentID,
		StudentID:        s.StudentID,
		Title:            s.Title,
		Text:             s.Text,
		SubmittedAt:      s.SubmittedAt,
		ObtainedAttempts: s.ObtainedAttempts,
		ObtainedMarks:    s.ObtainedMarks,
		Feedback:         s.Feedback,
		Files:            files,
	}
}
