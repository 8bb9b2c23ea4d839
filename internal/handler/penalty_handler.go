package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/internal/service"
	"github.com/noah-isme/gema-lms/internal/utils"
)

// PenaltyHandler exposes flat penalties, variation penalties and their ranges.
type PenaltyHandler struct {
	service service.PenaltyService
	logger  zerolog.Logger
}

// NewPenaltyHandler constructs a PenaltyHandler.
func NewPenaltyHandler(service service.PenaltyService, logger zerolog.Logger) *PenaltyHandler {
	return &PenaltyHandler{
		service: service,
		logger:  logger.With().Str("component", "penalty_handler").Logger(),
	}
}

// RegisterFlat wires the flat penalty routes.
func (h *PenaltyHandler) RegisterFlat(router fiber.Router) {
	router.Get("", h.listFlat)
	router.Post("", middleware.RequireStaff(), h.createFlat)
	router.Patch("/:id", middleware.RequireStaff(), h.updateFlat)
	router.Delete("/:id", middleware.RequireStaff(), h.deleteFlat)
}

// RegisterVariations wires the variation penalty routes.
func (h *PenaltyHandler) RegisterVariations(router fiber.Router) {
	router.Get("", h.getVariation)
	router.Post("", middleware.RequireStaff(), h.createVariation)
	router.Delete("/:id", middleware.RequireStaff(), h.deleteVariation)
}

// RegisterRanges wires the penalty range routes.
func (h *PenaltyHandler) RegisterRanges(router fiber.Router) {
	router.Get("", h.listRanges)
	router.Post("", middleware.RequireStaff(), h.createRange)
	router.Patch("/:id", middleware.RequireStaff(), h.updateRange)
	router.Delete("/:id", middleware.RequireStaff(), h.deleteRange)
}

func (h *PenaltyHandler) listFlat(c *fiber.Ctx) error {
	assignmentID, err := requiredQueryUint(c, "assignment")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	items, err := h.service.ListFlat(c.UserContext(), assignmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "penalties retrieved", items)
}

func (h *PenaltyHandler) createFlat(c *fiber.Ctx) error {
	var payload dto.PenaltyCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	penalty, err := h.service.CreateFlat(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "penalty created", penalty)
}

func (h *PenaltyHandler) updateFlat(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PenaltyUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	penalty, err := h.service.UpdateFlat(c.UserContext(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "penalty updated", penalty)
}

func (h *PenaltyHandler) deleteFlat(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteFlat(c.UserContext(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "penalty deleted", nil)
}

func (h *PenaltyHandler) getVariation(c *fiber.Ctx) error {
	assignmentID, err := requiredQueryUint(c, "assignment")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	variation, err := h.service.GetVariation(c.UserContext(), assignmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "variation penalty retrieved", variation)
}

func (h *PenaltyHandler) createVariation(c *fiber.Ctx) error {
	var payload dto.VariationPenaltyCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	variation, err := h.service.CreateVariation(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "variation penalty created", variation)
}

func (h *PenaltyHandler) deleteVariation(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteVariation(c.UserContext(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "variation penalty deleted", nil)
}

func (h *PenaltyHandler) listRanges(c *fiber.Ctx) error {
	variationID, err := requiredQueryUint(c, "variation_penalty")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	items, err := h.service.ListRanges(c.UserContext(), variationID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "penalty ranges retrieved", items)
}

func (h *PenaltyHandler) createRange(c *fiber.Ctx) error {
	var payload dto.PenaltyRangeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.CreateRange(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "penalty range created", item)
}

func (h *PenaltyHandler) updateRange(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PenaltyRangeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.UpdateRange(c.UserContext(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "penalty range updated", item)
}

func (h *PenaltyHandler) deleteRange(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteRange(c.UserContext(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "penalty range deleted", nil)
}

func (h *PenaltyHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrPenaltyNotFound),
		errors.Is(err, service.ErrVariationPenaltyNotFound),
		errors.Is(err, service.ErrPenaltyRangeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrVariationPenaltyExists), errors.Is(err, gorm.ErrDuplicatedKey):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("penalty request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
