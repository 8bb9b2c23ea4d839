package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/models"
)

// TimeSlotRepository persists weekly course time slots.
type TimeSlotRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.TimeSlot, error)
	GetByID(ctx context.Context, id uint) (models.TimeSlot, error)
	Create(ctx context.Context, slot *models.TimeSlot) error
	Update(ctx context.Context, slot *models.TimeSlot) error
	Delete(ctx context.Context, id uint) error
}

type timeSlotRepository struct {
	db *gorm.DB
}

// NewTimeSlotRepository instantiates the repository.
func NewTimeSlotRepository(db *gorm.DB) TimeSlotRepository {
	return &timeSlotRepository{db: db}
}

func (r *timeSlotRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("day_of_week ASC, start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timeSlotRepository) GetByID(ctx context.Context, id uint) (models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := r.db.WithContext(ctx).First(&slot, id).Error; err != nil {
		return models.TimeSlot{}, err
	}
	return slot, nil
}

func (r *timeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *timeSlotRepository) Update(ctx context.Context, slot *models.TimeSlot) error {
	return r.db.WithContext(ctx).Save(slot).Error
}

func (r *timeSlotRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.TimeSlot{}, id)
}
