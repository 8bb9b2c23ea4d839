package dto

import "time"

// TimeSlotCreateRequest creates a weekly slot.
type TimeSlotCreateRequest struct {
	CourseID  uint   `json:"course_id" validate:"required,gt=0"`
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Label     string `json:"label" validate:"omitempty,max=255"`
}

// TimeSlotUpdateRequest updates a weekly slot.
type TimeSlotUpdateRequest struct {
	DayOfWeek *int    `json:"day_of_week" validate:"omitempty,gte=0,lte=6"`
	StartTime *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   *string `json:"end_time" validate:"omitempty,datetime=15:04"`
	Label     *string `json:"label" validate:"omitempty,max=255"`
}

// CalendarEvent is one concrete occurrence of a time slot.
type CalendarEvent struct {
	SlotID   uint      `json:"slot_id"`
	CourseID uint      `json:"course_id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}
