package handler

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/middleware"
	"github.com/noah-isme/gema-lms/internal/service"
	"github.com/noah-isme/gema-lms/internal/utils"
	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// SubmissionHandler manages submission and submission file endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	writes  []fiber.Handler
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance. Extra write
// middlewares, such as a rate limiter, run before every student write.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger, writeMiddleware ...fiber.Handler) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		writes:  writeMiddleware,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the submission routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.current)
	router.Post("", h.studentWrite(h.create)...)
	router.Patch("/:id/grade", middleware.RequireStaff(), h.grade)
	router.Patch("/:id", h.studentWrite(h.update)...)
}

// RegisterFiles attaches the submission file routes.
func (h *SubmissionHandler) RegisterFiles(router fiber.Router) {
	router.Delete("/:id", h.studentWrite(h.deleteFile)...)
}

func (h *SubmissionHandler) studentWrite(handler fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(h.writes)+1)
	chain = append(chain, h.writes...)
	return append(chain, middleware.WithAuth(handler, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
}

func (h *SubmissionHandler) current(c *fiber.Ctx) error {
	assignmentID, err := parseQueryUint(c, "assignment")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if assignmentID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "assignment is required")
	}
	requested, err := parseQueryUint(c, "student")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, ok := resolveStudent(c, requested)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "cannot view another student's submission")
	}

	submission, err := h.service.Current(c.UserContext(), *assignmentID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	assignmentID, err := parseFormUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return h.write(c, assignmentID, 0)
}

func (h *SubmissionHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return h.write(c, 0, id)
}

func (h *SubmissionHandler) write(c *fiber.Ctx, assignmentID, submissionID uint) error {
	files, err := formFiles(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid multipart payload")
	}

	payload := dto.SubmissionWriteRequest{
		AssignmentID: assignmentID,
		StudentID:    middleware.UserID(c),
		Title:        c.FormValue("title"),
		Text:         c.FormValue("text"),
	}

	submission, err := h.service.Submit(c.UserContext(), payload, submissionID, files)
	if err != nil {
		return h.handleError(c, err)
	}

	if submissionID == 0 && submission.ObtainedAttempts == 1 {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
	}
	return utils.SendSuccess(c, "submission updated", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Grade(c.UserContext(), id, payload, middleware.UserID(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) deleteFile(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.DeleteFile(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return h.handleError(c, err)
	}

	message := "submission file deleted"
	if !result.Deleted {
		message = "submission file already removed"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var closed *service.SubmissionClosedError
	switch {
	case errors.As(err, &closed):
		code := utils.CodeAttemptsExhausted
		if closed.Reason == reconcile.EligibilityDeadlinePassed {
			code = utils.CodeDeadlinePassed
		}
		return utils.SendErrorCode(c, fiber.StatusConflict, code, closed.Error())
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrFileTypeNotAllowed):
		return utils.SendErrorCode(c, fiber.StatusUnsupportedMediaType, utils.CodeValidationFailed, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		return utils.SendErrorCode(c, fiber.StatusRequestEntityTooLarge, utils.CodeValidationFailed, err.Error())
	case errors.Is(err, service.ErrMarksExceedMax), errors.Is(err, service.ErrEmptyGrade), isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("submission request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func formFiles(c *fiber.Ctx) ([]*multipart.FileHeader, error) {
	contentType := strings.ToLower(string(c.Request().Header.ContentType()))
	if !strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	return form.File["files"], nil
}
