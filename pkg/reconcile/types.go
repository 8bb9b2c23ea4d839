package reconcile

import "time"

// Assignment is the student-facing view of an assignment definition.
type Assignment struct {
	ID               uint      `json:"id"`
	CourseID         uint      `json:"course_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DueDate          time.Time `json:"due_date"`
	MaxMarks         float64   `json:"max_marks"`
	AllowedFileTypes []string  `json:"allowed_file_types"`
	MaxFileSize      int64     `json:"max_file_size"`
	Attempts         int       `json:"attempts"`
}

// Submission is the single submission a student holds for an assignment.
type Submission struct {
	ID               uint             `json:"id"`
	AssignmentID     uint             `json:"assignment_id"`
	StudentID        uint             `json:"student_id"`
	Title            string           `json:"title"`
	Text             string           `json:"text"`
	SubmittedAt      time.Time        `json:"submitted_at"`
	ObtainedAttempts int              `json:"obtained_attempts"`
	ObtainedMarks    *float64         `json:"obtained_marks"`
	Feedback         *string          `json:"feedback"`
	Files            []SubmissionFile `json:"files"`
}

// SubmissionFile is one attachment owned by a submission.
type SubmissionFile struct {
	ID           uint   `json:"id"`
	SubmissionID uint   `json:"submission_id"`
	FileURL      string `json:"file_url"`
	FileName     string `json:"file_name"`
}

// FlatPenalty applies a fixed percentage whenever a submission is late.
type FlatPenalty struct {
	ID           uint    `json:"id"`
	AssignmentID uint    `json:"assignment_id"`
	Percentage   float64 `json:"percentage"`
	Description  string  `json:"description"`
}

// VariationPenalty names a tiered lateness schedule.
type VariationPenalty struct {
	ID           uint   `json:"id"`
	AssignmentID uint   `json:"assignment_id"`
	Name         string `json:"name"`
}

// PenaltyRange is one tier of a variation penalty, active from DaysLate onwards.
type PenaltyRange struct {
	ID                 uint    `json:"id"`
	VariationPenaltyID uint    `json:"variation_penalty_id"`
	DaysLate           int     `json:"days_late"`
	Percentage         float64 `json:"percentage"`
}

// PenaltySources is everything configured for an assignment's late policy.
type PenaltySources struct {
	Flat      []FlatPenalty     `json:"flat_penalties"`
	Variation *VariationPenalty `json:"variation_penalty"`
	Ranges    []PenaltyRange    `json:"ranges"`
}
