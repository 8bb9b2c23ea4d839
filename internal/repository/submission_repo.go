package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-lms/internal/models"
)

// ErrAttemptLimitReached is returned when a write would push obtained attempts
// past the assignment limit.
var ErrAttemptLimitReached = errors.New("attempt limit reached")

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
}

// SubmissionAttempt describes one accepted write. A zero SubmissionID creates
// the submission.
type SubmissionAttempt struct {
	SubmissionID uint
	AssignmentID uint
	StudentID    uint
	Title        string
	Text         string
	SubmittedAt  time.Time
	MaxAttempts  int
	Files        []models.SubmissionFile
}

// GradeUpdate carries marks and feedback recorded by a teacher.
type GradeUpdate struct {
	Marks    *float64
	Feedback *string
	GradedBy uint
	GradedAt time.Time
}

// SubmissionRepository defines data operations for submissions and their files.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	RecordAttempt(ctx context.Context, attempt SubmissionAttempt) (uint, error)
	UpdateGrade(ctx context.Context, id uint, update GradeUpdate) error
	GetFile(ctx context.Context, id uint) (models.SubmissionFile, error)
	DeleteFile(ctx context.Context, id uint) (bool, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Files", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// RecordAttempt creates or updates the submission and appends files in one
// transaction. The attempt counter is bumped with a conditional update so two
// concurrent writers cannot exceed MaxAttempts.
func (r *submissionRepository) RecordAttempt(ctx context.Context, attempt SubmissionAttempt) (uint, error) {
	if attempt.MaxAttempts < 1 {
		return 0, ErrAttemptLimitReached
	}

	var submissionID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if attempt.SubmissionID == 0 {
			submission := models.Submission{
				AssignmentID:     attempt.AssignmentID,
				StudentID:        attempt.StudentID,
				Title:            attempt.Title,
				Text:             attempt.Text,
				SubmittedAt:      attempt.SubmittedAt,
				ObtainedAttempts: 1,
			}
			if err := tx.Omit(clause.Associations).Create(&submission).Error; err != nil {
				return err
			}
			submissionID = submission.ID
		} else {
			result := tx.Model(&models.Submission{}).
				Where("id = ? AND obtained_attempts < ?", attempt.SubmissionID, attempt.MaxAttempts).
				Updates(map[string]interface{}{
					"title":             attempt.Title,
					"text":              attempt.Text,
					"submitted_at":      attempt.SubmittedAt,
					"obtained_attempts": gorm.Expr("obtained_attempts + ?", 1),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrAttemptLimitReached
			}
			submissionID = attempt.SubmissionID
		}

		if len(attempt.Files) == 0 {
			return nil
		}
		files := make([]models.SubmissionFile, 0, len(attempt.Files))
		for _, file := range attempt.Files {
			file.ID = 0
			file.SubmissionID = submissionID
			files = append(files, file)
		}
		return tx.Create(&files).Error
	})
	if err != nil {
		return 0, err
	}

	return submissionID, nil
}

func (r *submissionRepository) UpdateGrade(ctx context.Context, id uint, update GradeUpdate) error {
	values := map[string]interface{}{
		"graded_by": update.GradedBy,
		"graded_at": update.GradedAt,
	}
	if update.Marks != nil {
		values["obtained_marks"] = *update.Marks
	}
	if update.Feedback != nil {
		values["feedback"] = *update.Feedback
	}

	result := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *submissionRepository) GetFile(ctx context.Context, id uint) (models.SubmissionFile, error) {
	var file models.SubmissionFile
	if err := r.db.WithContext(ctx).First(&file, id).Error; err != nil {
		return models.SubmissionFile{}, err
	}
	return file, nil
}

// DeleteFile removes a file and reports whether a row was deleted.
func (r *submissionRepository) DeleteFile(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.SubmissionFile{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
