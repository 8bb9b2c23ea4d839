package models

import (
	"fmt"
	"time"
)

// ClockLayout is the wall-clock format used for time slot boundaries.
const ClockLayout = "15:04"

// TimeSlot is a recurring weekly teaching slot for a course.
type TimeSlot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"index;not null" json:"course_id"`
	DayOfWeek int       `gorm:"not null" json:"day_of_week"`
	StartTime string    `gorm:"size:5;not null" json:"start_time"`
	EndTime   string    `gorm:"size:5;not null" json:"end_time"`
	Label     string    `gorm:"size:255" json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Weekday returns the slot's day as a time.Weekday.
func (t TimeSlot) Weekday() time.Weekday {
	return time.Weekday(t.DayOfWeek)
}

// Bounds resolves the slot's start and end on the given calendar day.
func (t TimeSlot) Bounds(day time.Time) (time.Time, time.Time, error) {
	start, err := time.Parse(ClockLayout, t.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time %q: %w", t.StartTime, err)
	}
	end, err := time.Parse(ClockLayout, t.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time %q: %w", t.EndTime, err)
	}

	y, m, d := day.Date()
	loc := day.Location()
	return time.Date(y, m, d, start.Hour(), start.Minute(), 0, 0, loc),
		time.Date(y, m, d, end.Hour(), end.Minute(), 0, 0, loc),
		nil
}
