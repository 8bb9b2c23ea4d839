package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/models"
	"github.com/noah-isme/gema-lms/internal/observability"
	"github.com/noah-isme/gema-lms/internal/repository"
	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionClosed is matched by every SubmissionClosedError.
	ErrSubmissionClosed = errors.New("submission closed")
	// ErrFileTypeNotAllowed rejects an attachment outside the allowed extensions.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	// ErrFileTooLarge rejects an attachment above the assignment size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("operation not permitted")
	// ErrMarksExceedMax rejects marks above the assignment maximum.
	ErrMarksExceedMax = errors.New("marks exceed assignment maximum")
	// ErrEmptyGrade rejects a grade request carrying neither marks nor feedback.
	ErrEmptyGrade = errors.New("marks or feedback must be provided")
	// ErrStorageUnavailable indicates files were sent but no uploader is configured.
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

var blockedContentTypes = []string{
	"application/x-executable",
	"application/x-elf",
	"application/x-mach-binary",
	"application/vnd.microsoft.portable-executable",
}

// SubmissionClosedError reports why a write was refused.
type SubmissionClosedError struct {
	Reason reconcile.Eligibility
}

func (e *SubmissionClosedError) Error() string {
	switch e.Reason {
	case reconcile.EligibilityDeadlinePassed:
		return "submission closed: deadline passed"
	case reconcile.EligibilityAttemptsExhausted:
		return "submission closed: no attempts remaining"
	default:
		return ErrSubmissionClosed.Error()
	}
}

// Is lets callers match any closed submission with errors.Is(err, ErrSubmissionClosed).
func (e *SubmissionClosedError) Is(target error) bool {
	return target == ErrSubmissionClosed
}

// FileUploader defines the contract for storing files in remote storage.
// Delete removes a file previously returned by Upload.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// SubmissionService orchestrates submission workflows.
type SubmissionService interface {
	Current(ctx context.Context, assignmentID, studentID uint) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, payload dto.SubmissionWriteRequest, submissionID uint, files []*multipart.FileHeader) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, id uint, payload dto.SubmissionGradeRequest, graderID uint) (dto.SubmissionResponse, error)
	DeleteFile(ctx context.Context, fileID, studentID uint) (dto.FileDeleteResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	uploader    FileUploader
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, validate *validator.Validate, uploader FileUploader, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		validator:   validate,
		uploader:    uploader,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Current(ctx context.Context, assignmentID, studentID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Submit creates the student's submission or records a new attempt on it.
// Eligibility is evaluated again here and enforced once more by the
// conditional attempt increment in the repository.
func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionWriteRequest, submissionID uint, files []*multipart.FileHeader) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-lms/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.write")
	span.SetAttributes(
		attribute.Int64("submission.student_id", int64(payload.StudentID)),
		attribute.Int("submission.files", len(files)),
	)
	defer span.End()

	fail := func(outcome string, err error) (dto.SubmissionResponse, error) {
		observability.SubmissionAttempts().WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return dto.SubmissionResponse{}, err
	}

	var existing *models.Submission
	if submissionID != 0 {
		current, err := s.submissions.GetByID(ctx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fail("not_found", ErrSubmissionNotFound)
			}
			return fail("error", err)
		}
		if current.StudentID != payload.StudentID {
			return fail("forbidden", ErrForbidden)
		}
		payload.AssignmentID = current.AssignmentID
		existing = &current
	}

	payload.Title = strings.TrimSpace(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return fail("invalid", err)
	}
	span.SetAttributes(attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)))

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail("not_found", ErrAssignmentNotFound)
		}
		return fail("error", err)
	}

	if existing == nil {
		current, err := s.submissions.GetByAssignmentAndStudent(ctx, assignment.ID, payload.StudentID)
		switch {
		case err == nil:
			existing = &current
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fail("error", err)
		}
	}

	if err := s.checkEligibility(assignment, existing); err != nil {
		return fail(outcomeFor(err), err)
	}

	for _, file := range files {
		if err := validateSubmissionFile(assignment, file); err != nil {
			return fail("invalid_file", err)
		}
	}

	stored, err := s.uploadFiles(ctx, assignment, payload.StudentID, files)
	if err != nil {
		return fail("error", err)
	}
	// Stored files belong to the attempt; a refused attempt must not keep them.
	failStored := func(outcome string, err error) (dto.SubmissionResponse, error) {
		s.discardFiles(ctx, stored)
		return fail(outcome, err)
	}

	attempt := repository.SubmissionAttempt{
		AssignmentID: assignment.ID,
		StudentID:    payload.StudentID,
		Title:        payload.Title,
		Text:         payload.Text,
		SubmittedAt:  s.now(),
		MaxAttempts:  assignment.Attempts,
		Files:        stored,
	}
	if existing != nil {
		attempt.SubmissionID = existing.ID
	}

	id, err := s.submissions.RecordAttempt(ctx, attempt)
	if errors.Is(err, gorm.ErrDuplicatedKey) && attempt.SubmissionID == 0 {
		// A concurrent first write won; count this one as an attempt on that row.
		current, lookupErr := s.submissions.GetByAssignmentAndStudent(ctx, assignment.ID, payload.StudentID)
		if lookupErr != nil {
			return failStored("error", lookupErr)
		}
		attempt.SubmissionID = current.ID
		id, err = s.submissions.RecordAttempt(ctx, attempt)
	}
	if err != nil {
		if errors.Is(err, repository.ErrAttemptLimitReached) {
			closed := &SubmissionClosedError{Reason: reconcile.EligibilityAttemptsExhausted}
			return failStored(outcomeFor(closed), closed)
		}
		return failStored("error", err)
	}

	saved, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return fail("error", err)
	}

	observability.SubmissionAttempts().WithLabelValues("accepted").Inc()
	span.SetAttributes(attribute.Int("submission.obtained_attempts", saved.ObtainedAttempts))
	s.logger.Info().
		Uint("submission_id", saved.ID).
		Uint("assignment_id", saved.AssignmentID).
		Int("obtained_attempts", saved.ObtainedAttempts).
		Int("files", len(stored)).
		Msg("submission attempt recorded")

	return dto.NewSubmissionResponse(saved), nil
}

func (s *submissionService) checkEligibility(assignment models.Assignment, existing *models.Submission) error {
	var current *reconcile.Submission
	if existing != nil {
		domain := existing.ToDomain()
		current = &domain
	}

	eligibility := reconcile.EvaluateEligibility(assignment.ToDomain(), current, s.now())
	if eligibility.Allowed() {
		return nil
	}
	return &SubmissionClosedError{Reason: eligibility}
}

func (s *submissionService) uploadFiles(ctx context.Context, assignment models.Assignment, studentID uint, files []*multipart.FileHeader) ([]models.SubmissionFile, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}

	stored := make([]models.SubmissionFile, 0, len(files))
	for _, file := range files {
		contentType, err := sniffContentType(file)
		if err != nil {
			s.discardFiles(ctx, stored)
			return nil, err
		}

		reader, err := file.Open()
		if err != nil {
			s.discardFiles(ctx, stored)
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		name := fmt.Sprintf("a%d-s%d-%s", assignment.ID, studentID, file.Filename)
		url, err := s.uploader.Upload(ctx, name, reader)
		reader.Close()
		if err != nil {
			s.discardFiles(ctx, stored)
			return nil, fmt.Errorf("failed to upload file: %w", err)
		}

		stored = append(stored, models.SubmissionFile{
			FileURL:     url,
			FileName:    file.Filename,
			Size:        file.Size,
			ContentType: contentType,
		})
	}

	return stored, nil
}

// discardFiles removes files uploaded for an attempt that was not recorded.
// It keeps going after a failed delete and logs what remains in storage.
func (s *submissionService) discardFiles(ctx context.Context, stored []models.SubmissionFile) {
	if len(stored) == 0 || s.uploader == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, file := range stored {
		if err := s.uploader.Delete(ctx, file.FileURL); err != nil {
			s.logger.Warn().Err(err).Str("file_url", file.FileURL).Msg("failed to remove uploaded file")
		}
	}
}

func (s *submissionService) Grade(ctx context.Context, id uint, payload dto.SubmissionGradeRequest, graderID uint) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-lms/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.grade")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(id)),
		attribute.Int64("grading.actor_id", int64(graderID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}
	if payload.Marks == nil && payload.Feedback == nil {
		span.SetStatus(codes.Error, "empty_grade")
		return dto.SubmissionResponse{}, ErrEmptyGrade
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignment_lookup_failed")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if payload.Marks != nil && *payload.Marks > assignment.MaxMarks+1e-9 {
		span.SetStatus(codes.Error, "marks_exceed_max")
		return dto.SubmissionResponse{}, ErrMarksExceedMax
	}

	update := repository.GradeUpdate{
		Marks:    payload.Marks,
		GradedBy: graderID,
		GradedAt: s.now(),
	}
	if payload.Feedback != nil {
		feedback := strings.TrimSpace(s.sanitizer.Sanitize(*payload.Feedback))
		update.Feedback = &feedback
	}

	if err := s.submissions.UpdateGrade(ctx, submission.ID, update); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	graded, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if graded.ObtainedMarks != nil {
		span.SetAttributes(attribute.Float64("grading.marks", *graded.ObtainedMarks))
	}
	s.logger.Info().Uint("submission_id", graded.ID).Uint("graded_by", graderID).Msg("submission graded")

	return dto.NewSubmissionResponse(graded), nil
}

// DeleteFile removes an attachment owned by studentID. A missing file is a
// successful no-op so repeated deletes do not fail.
func (s *submissionService) DeleteFile(ctx context.Context, fileID, studentID uint) (dto.FileDeleteResponse, error) {
	file, err := s.submissions.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FileDeleteResponse{ID: fileID}, nil
		}
		return dto.FileDeleteResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, file.SubmissionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.FileDeleteResponse{}, err
	}
	if err == nil && submission.StudentID != studentID {
		return dto.FileDeleteResponse{}, ErrForbidden
	}

	deleted, err := s.submissions.DeleteFile(ctx, fileID)
	if err != nil {
		return dto.FileDeleteResponse{}, err
	}

	if deleted {
		s.discardFiles(ctx, []models.SubmissionFile{file})
		s.logger.Info().Uint("file_id", fileID).Uint("submission_id", file.SubmissionID).Msg("submission file deleted")
	}

	return dto.FileDeleteResponse{ID: fileID, Deleted: deleted}, nil
}

func validateSubmissionFile(assignment models.Assignment, file *multipart.FileHeader) error {
	if file == nil {
		return fmt.Errorf("%w: missing file", ErrFileTypeNotAllowed)
	}
	if !assignment.AllowsFile(file.Filename) {
		return fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, file.Filename)
	}
	if !assignment.ToDomain().FitsSize(file.Size) {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, file.Filename, file.Size, assignment.MaxFileSize)
	}

	contentType, err := sniffContentType(file)
	if err != nil {
		return err
	}
	for _, blocked := range blockedContentTypes {
		if strings.EqualFold(contentType, blocked) {
			return fmt.Errorf("%w: %s contains %s", ErrFileTypeNotAllowed, file.Filename, contentType)
		}
	}
	return nil
}

func sniffContentType(file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	detected, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}
	// Drop parameters such as charset.
	contentType, _, _ := strings.Cut(detected.String(), ";")
	return contentType, nil
}

func outcomeFor(err error) string {
	var closed *SubmissionClosedError
	if errors.As(err, &closed) {
		switch closed.Reason {
		case reconcile.EligibilityDeadlinePassed:
			return "deadline_passed"
		case reconcile.EligibilityAttemptsExhausted:
			return "attempts_exhausted"
		}
	}
	return "error"
}
