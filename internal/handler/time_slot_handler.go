package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/internal/service"
	"github.com/noah-isme/gema-lms/internal/utils"
)

// TimeSlotHandler exposes weekly course slots and the derived calendar.
type TimeSlotHandler struct {
	service service.TimeSlotService
	logger  zerolog.Logger
}

// NewTimeSlotHandler constructs a TimeSlotHandler.
func NewTimeSlotHandler(service service.TimeSlotService, logger zerolog.Logger) *TimeSlotHandler {
	return &TimeSlotHandler{
		service: service,
		logger:  logger.With().Str("component", "time_slot_handler").Logger(),
	}
}

// Register wires the /time-slots routes.
func (h *TimeSlotHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireStaff(), h.create)
	router.Patch("/:id", middleware.RequireStaff(), h.update)
	router.Delete("/:id", middleware.RequireStaff(), h.delete)
}

// RegisterCourse wires slot listing and the calendar under /courses/:id.
func (h *TimeSlotHandler) RegisterCourse(router fiber.Router) {
	router.Get("/:id/time-slots", h.list)
	router.Get("/:id/calendar", h.calendar)
}

func (h *TimeSlotHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	slots, err := h.service.ListByCourse(c.UserContext(), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "time slots retrieved", slots)
}

func (h *TimeSlotHandler) calendar(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	events, err := h.service.Calendar(c.UserContext(), courseID, c.Query("from"), c.Query("to"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "calendar retrieved", events)
}

func (h *TimeSlotHandler) create(c *fiber.Ctx) error {
	var payload dto.TimeSlotCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	slot, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "time slot created", slot)
}

func (h *TimeSlotHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TimeSlotUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	slot, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "time slot updated", slot)
}

func (h *TimeSlotHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "time slot deleted", nil)
}

func (h *TimeSlotHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrTimeSlotNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "time slot not found")
	case errors.Is(err, service.ErrInvalidTimeSlot), errors.Is(err, service.ErrInvalidCalendarRange), isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("time slot request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
