package models

import "time"

// Announcement is a message broadcast to the members of a course.
type Announcement struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CourseID  uint       `gorm:"index;not null" json:"course_id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	StartsAt  time.Time  `gorm:"index" json:"starts_at"`
	EndsAt    *time.Time `gorm:"index" json:"ends_at"`
	IsPinned  bool       `gorm:"index" json:"is_pinned"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsActive reports whether the announcement is visible at the reference time.
func (a Announcement) IsActive(reference time.Time) bool {
	if reference.Before(a.StartsAt) {
		return false
	}
	return a.EndsAt == nil || reference.Before(*a.EndsAt)
}
