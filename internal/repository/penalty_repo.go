package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/models"
)

// PenaltyRepository persists flat penalties, variation penalties and their ranges.
type PenaltyRepository interface {
	ListFlat(ctx context.Context, assignmentID uint) ([]models.Penalty, error)
	GetFlat(ctx context.Context, id uint) (models.Penalty, error)
	CreateFlat(ctx context.Context, penalty *models.Penalty) error
	UpdateFlat(ctx context.Context, penalty *models.Penalty) error
	DeleteFlat(ctx context.Context, id uint) error

	GetVariationByAssignment(ctx context.Context, assignmentID uint) (models.VariationPenalty, error)
	GetVariation(ctx context.Context, id uint) (models.VariationPenalty, error)
	CreateVariation(ctx context.Context, variation *models.VariationPenalty) error
	DeleteVariation(ctx context.Context, id uint) error

	ListRanges(ctx context.Context, variationID uint) ([]models.PenaltyRange, error)
	GetRange(ctx context.Context, id uint) (models.PenaltyRange, error)
	CreateRange(ctx context.Context, penaltyRange *models.PenaltyRange) error
	UpdateRange(ctx context.Context, penaltyRange *models.PenaltyRange) error
	DeleteRange(ctx context.Context, id uint) error
}

type penaltyRepository struct {
	db *gorm.DB
}

// NewPenaltyRepository instantiates the repository.
func NewPenaltyRepository(db *gorm.DB) PenaltyRepository {
	return &penaltyRepository{db: db}
}

func (r *penaltyRepository) ListFlat(ctx context.Context, assignmentID uint) ([]models.Penalty, error) {
	var penalties []models.Penalty
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&penalties).Error; err != nil {
		return nil, err
	}
	return penalties, nil
}

func (r *penaltyRepository) GetFlat(ctx context.Context, id uint) (models.Penalty, error) {
	var penalty models.Penalty
	if err := r.db.WithContext(ctx).First(&penalty, id).Error; err != nil {
		return models.Penalty{}, err
	}
	return penalty, nil
}

func (r *penaltyRepository) CreateFlat(ctx context.Context, penalty *models.Penalty) error {
	return r.db.WithContext(ctx).Create(penalty).Error
}

func (r *penaltyRepository) UpdateFlat(ctx context.Context, penalty *models.Penalty) error {
	return r.db.WithContext(ctx).Save(penalty).Error
}

func (r *penaltyRepository) DeleteFlat(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Penalty{}, id)
}

func (r *penaltyRepository) GetVariationByAssignment(ctx context.Context, assignmentID uint) (models.VariationPenalty, error) {
	var variation models.VariationPenalty
	if err := r.db.WithContext(ctx).Where("assignment_id = ?", assignmentID).First(&variation).Error; err != nil {
		return models.VariationPenalty{}, err
	}
	return variation, nil
}

func (r *penaltyRepository) GetVariation(ctx context.Context, id uint) (models.VariationPenalty, error) {
	var variation models.VariationPenalty
	if err := r.db.WithContext(ctx).First(&variation, id).Error; err != nil {
		return models.VariationPenalty{}, err
	}
	return variation, nil
}

func (r *penaltyRepository) CreateVariation(ctx context.Context, variation *models.VariationPenalty) error {
	return r.db.WithContext(ctx).Create(variation).Error
}

// DeleteVariation removes the variation penalty together with its ranges.
func (r *penaltyRepository) DeleteVariation(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("variation_penalty_id = ?", id).Delete(&models.PenaltyRange{}).Error; err != nil {
			return err
		}
		return deleteByID(ctx, tx, &models.VariationPenalty{}, id)
	})
}

func (r *penaltyRepository) ListRanges(ctx context.Context, variationID uint) ([]models.PenaltyRange, error) {
	var ranges []models.PenaltyRange
	if err := r.db.WithContext(ctx).
		Where("variation_penalty_id = ?", variationID).
		Order("days_late ASC, id ASC").
		Find(&ranges).Error; err != nil {
		return nil, err
	}
	return ranges, nil
}

func (r *penaltyRepository) GetRange(ctx context.Context, id uint) (models.PenaltyRange, error) {
	var penaltyRange models.PenaltyRange
	if err := r.db.WithContext(ctx).First(&penaltyRange, id).Error; err != nil {
		return models.PenaltyRange{}, err
	}
	return penaltyRange, nil
}

func (r *penaltyRepository) CreateRange(ctx context.Context, penaltyRange *models.PenaltyRange) error {
	return r.db.WithContext(ctx).Create(penaltyRange).Error
}

func (r *penaltyRepository) UpdateRange(ctx context.Context, penaltyRange *models.PenaltyRange) error {
	return r.db.WithContext(ctx).Save(penaltyRange).Error
}

func (r *penaltyRepository) DeleteRange(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.PenaltyRange{}, id)
}

func deleteByID(ctx context.Context, db *gorm.DB, model interface{}, id uint) error {
	result := db.WithContext(ctx).Delete(model, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
