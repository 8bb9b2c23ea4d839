package dto

import (
	"time"

	"github.com/noah-isme/gema-lms/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	CourseID         uint     `json:"course_id" validate:"required,gt=0"`
	Title            string   `json:"title" validate:"required,min=3"`
	Description      string   `json:"description" validate:"omitempty,max=10000"`
	DueDate          string   `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	MaxMarks         float64  `json:"max_marks" validate:"required,gt=0"`
	AllowedFileTypes []string `json:"allowed_file_types" validate:"omitempty,dive,required,max=16"`
	MaxFileSize      int64    `json:"max_file_size" validate:"required,gt=0"`
	Attempts         int      `json:"attempts" validate:"required,gte=1,lte=100"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title            *string   `json:"title" validate:"omitempty,min=3"`
	Description      *string   `json:"description" validate:"omitempty,max=10000"`
	DueDate          *string   `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	MaxMarks         *float64  `json:"max_marks" validate:"omitempty,gt=0"`
	AllowedFileTypes *[]string `json:"allowed_file_types" validate:"omitempty,dive,required,max=16"`
	MaxFileSize      *int64    `json:"max_file_size" validate:"omitempty,gt=0"`
	Attempts         *int      `json:"attempts" validate:"omitempty,gte=1,lte=100"`
}

// AssignmentListRequest carries list filters.
type AssignmentListRequest struct {
	CourseID *uint
	Search   string
	Sort     string
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID               uint      `json:"id"`
	CourseID         uint      `json:"course_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DueDate          time.Time `json:"due_date"`
	MaxMarks         float64   `json:"max_marks"`
	AllowedFileTypes []string  `json:"allowed_file_types"`
	MaxFileSize      int64     `json:"max_file_size"`
	Attempts         int       `json:"attempts"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	types := make([]string, 0, len(model.AllowedFileTypes))
	types = append(types, model.AllowedFileTypes...)
	return AssignmentResponse{
		ID:               model.ID,
		CourseID:         model.CourseID,
		Title:            model.Title,
		Description:      model.Description,
		DueDate:          model.DueDate,
		MaxMarks:         model.MaxMarks,
		AllowedFileTypes: types,
		MaxFileSize:      model.MaxFileSize,
		Attempts:         model.Attempts,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
