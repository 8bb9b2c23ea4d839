package dto

import (
	"time"

	"github.com/noah-isme/gema-lms/internal/models"
)

// SubmissionWriteRequest describes the text fields of a multipart submission write.
type SubmissionWriteRequest struct {
	AssignmentID uint   `form:"assignment_id" validate:"required,gt=0"`
	StudentID    uint   `validate:"required,gt=0"`
	Title        string `form:"title" validate:"omitempty,max=255"`
	Text         string `form:"text" validate:"omitempty,max=20000"`
}

// SubmissionGradeRequest is used by teachers to record marks and feedback.
type SubmissionGradeRequest struct {
	Marks    *float64 `json:"marks" validate:"omitempty,gte=0"`
	Feedback *string  `json:"feedback" validate:"omitempty,max=10000"`
}

// SubmissionFileResponse describes one attachment.
type SubmissionFileResponse struct {
	ID           uint      `json:"id"`
	SubmissionID uint      `json:"submission_id"`
	FileURL      string    `json:"file_url"`
	FileName     string    `json:"file_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID               uint                     `json:"id"`
	AssignmentID     uint                     `json:"assignment_id"`
	StudentID        uint                     `json:"student_id"`
	Title            string                   `json:"title"`
	Text             string                   `json:"text"`
	SubmittedAt      time.Time                `json:"submitted_at"`
	ObtainedAttempts int                      `json:"obtained_attempts"`
	ObtainedMarks    *float64                 `json:"obtained_marks"`
	Feedback         *string                  `json:"feedback"`
	GradedBy         *uint                    `json:"graded_by"`
	GradedAt         *time.Time               `json:"graded_at"`
	Files            []SubmissionFileResponse `json:"files"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// FileDeleteResponse reports the outcome of an idempotent file delete.
type FileDeleteResponse struct {
	ID      uint `json:"id"`
	Deleted bool `json:"deleted"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	files := make([]SubmissionFileResponse, 0, len(model.Files))
	for _, file := range model.Files {
		files = append(files, SubmissionFileResponse{
			ID:           file.ID,
			SubmissionID: file.SubmissionID,
			FileURL:      file.FileURL,
			FileName:     file.FileName,
			Size:         file.Size,
			ContentType:  file.ContentType,
			CreatedAt:    file.CreatedAt,
		})
	}

	return SubmissionResponse{
		ID:               model.ID,
		AssignmentID:     model.AssignmentID,
		StudentID:        model.StudentID,
		Title:            model.Title,
		Text:             model.Text,
		SubmittedAt:      model.SubmittedAt,
		ObtainedAttempts: model.ObtainedAttempts,
		ObtainedMarks:    model.ObtainedMarks,
		Feedback:         model.Feedback,
		GradedBy:         model.GradedBy,
		GradedAt:         model.GradedAt,
		Files:            files,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, submission := range items {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
