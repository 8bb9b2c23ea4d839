package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/models"
	"github.com/noah-isme/gema-lms/internal/repository"
)

const (
	calendarDateLayout = "2006-01-02"
	maxCalendarDays    = 366
)

var (
	// ErrTimeSlotNotFound indicates the time slot does not exist.
	ErrTimeSlotNotFound = errors.New("time slot not found")
	// ErrInvalidTimeSlot rejects a slot whose end is not after its start.
	ErrInvalidTimeSlot = errors.New("time slot must end after it starts")
	// ErrInvalidCalendarRange rejects malformed, inverted or oversized calendar windows.
	ErrInvalidCalendarRange = errors.New("invalid calendar range")
)

// TimeSlotService manages weekly course time slots and expands them into a calendar.
type TimeSlotService interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.TimeSlot, error)
	Create(ctx context.Context, payload dto.TimeSlotCreateRequest) (models.TimeSlot, error)
	Update(ctx context.Context, id uint, payload dto.TimeSlotUpdateRequest) (models.TimeSlot, error)
	Delete(ctx context.Context, id uint) error
	Calendar(ctx context.Context, courseID uint, from, to string) ([]dto.CalendarEvent, error)
}

type timeSlotService struct {
	repo      repository.TimeSlotRepository
	courses   repository.CourseRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTimeSlotService constructs the time slot service.
func NewTimeSlotService(repo repository.TimeSlotRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) TimeSlotService {
	return &timeSlotService{
		repo:      repo,
		courses:   courses,
		validator: validate,
		logger:    logger.With().Str("component", "time_slot_service").Logger(),
	}
}

func (s *timeSlotService) ListByCourse(ctx context.Context, courseID uint) ([]models.TimeSlot, error) {
	if _, err := s.course(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListByCourse(ctx, courseID)
}

func (s *timeSlotService) Create(ctx context.Context, payload dto.TimeSlotCreateRequest) (models.TimeSlot, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.TimeSlot{}, err
	}
	if _, err := s.course(ctx, payload.CourseID); err != nil {
		return models.TimeSlot{}, err
	}

	slot := models.TimeSlot{
		CourseID:  payload.CourseID,
		DayOfWeek: payload.DayOfWeek,
		StartTime: payload.StartTime,
		EndTime:   payload.EndTime,
		Label:     strings.TrimSpace(payload.Label),
	}
	if err := validateSlotBounds(slot); err != nil {
		return models.TimeSlot{}, err
	}

	if err := s.repo.Create(ctx, &slot); err != nil {
		return models.TimeSlot{}, err
	}

	s.logger.Info().Uint("time_slot_id", slot.ID).Uint("course_id", slot.CourseID).Msg("time slot created")
	return slot, nil
}

func (s *timeSlotService) Update(ctx context.Context, id uint, payload dto.TimeSlotUpdateRequest) (models.TimeSlot, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.TimeSlot{}, err
	}

	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TimeSlot{}, ErrTimeSlotNotFound
		}
		return models.TimeSlot{}, err
	}

	if payload.DayOfWeek != nil {
		slot.DayOfWeek = *payload.DayOfWeek
	}
	if payload.StartTime != nil {
		slot.StartTime = *payload.StartTime
	}
	if payload.EndTime != nil {
		slot.EndTime = *payload.EndTime
	}
	if payload.Label != nil {
		slot.Label = strings.TrimSpace(*payload.Label)
	}
	if err := validateSlotBounds(slot); err != nil {
		return models.TimeSlot{}, err
	}

	if err := s.repo.Update(ctx, &slot); err != nil {
		return models.TimeSlot{}, err
	}
	return slot, nil
}

func (s *timeSlotService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTimeSlotNotFound
		}
		return err
	}
	return nil
}

// Calendar expands the course's weekly slots into dated events for every day
// in [from, to], both inclusive, ordered by start.
func (s *timeSlotService) Calendar(ctx context.Context, courseID uint, from, to string) ([]dto.CalendarEvent, error) {
	start, err := time.Parse(calendarDateLayout, from)
	if err != nil {
		return nil, ErrInvalidCalendarRange
	}
	end, err := time.Parse(calendarDateLayout, to)
	if err != nil {
		return nil, ErrInvalidCalendarRange
	}
	if end.Before(start) || end.Sub(start) > (maxCalendarDays-1)*24*time.Hour {
		return nil, ErrInvalidCalendarRange
	}

	course, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	slots, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Weekday][]models.TimeSlot, 7)
	for _, slot := range slots {
		byDay[slot.Weekday()] = append(byDay[slot.Weekday()], slot)
	}

	events := make([]dto.CalendarEvent, 0)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, slot := range byDay[day.Weekday()] {
			slotStart, slotEnd, err := slot.Bounds(day)
			if err != nil {
				s.logger.Warn().Err(err).Uint("time_slot_id", slot.ID).Msg("skipping malformed time slot")
				continue
			}
			title := slot.Label
			if title == "" {
				title = course.Name
			}
			events = append(events, dto.CalendarEvent{
				SlotID:   slot.ID,
				CourseID: courseID,
				Title:    title,
				Start:    slotStart,
				End:      slotEnd,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	return events, nil
}

func (s *timeSlotService) course(ctx context.Context, id uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}
	return course, nil
}

func validateSlotBounds(slot models.TimeSlot) error {
	start, end, err := slot.Bounds(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return ErrInvalidTimeSlot
	}
	if !end.After(start) {
		return ErrInvalidTimeSlot
	}
	return nil
}
