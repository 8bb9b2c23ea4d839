package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/models"
	"github.com/noah-isme/gema-lms/internal/observability"
	"github.com/noah-isme/gema-lms/internal/repository"
	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

var (
	// ErrPenaltyNotFound indicates a flat penalty does not exist.
	ErrPenaltyNotFound = errors.New("penalty not found")
	// ErrVariationPenaltyNotFound indicates a variation penalty does not exist.
	ErrVariationPenaltyNotFound = errors.New("variation penalty not found")
	// ErrVariationPenaltyExists rejects a second variation penalty on one assignment.
	ErrVariationPenaltyExists = errors.New("assignment already has a variation penalty")
	// ErrPenaltyRangeNotFound indicates a penalty range does not exist.
	ErrPenaltyRangeNotFound = errors.New("penalty range not found")
)

// PenaltyService manages late penalties and aggregates them for a lateness.
type PenaltyService interface {
	Sources(ctx context.Context, assignmentID uint) (reconcile.PenaltySources, error)
	Aggregate(ctx context.Context, assignmentID uint, daysLate int) (reconcile.PenaltyDecision, error)

	ListFlat(ctx context.Context, assignmentID uint) ([]reconcile.FlatPenalty, error)
	CreateFlat(ctx context.Context, payload dto.PenaltyCreateRequest) (reconcile.FlatPenalty, error)
	UpdateFlat(ctx context.Context, id uint, payload dto.PenaltyUpdateRequest) (reconcile.FlatPenalty, error)
	DeleteFlat(ctx context.Context, id uint) error

	GetVariation(ctx context.Context, assignmentID uint) (reconcile.VariationPenalty, error)
	CreateVariation(ctx context.Context, payload dto.VariationPenaltyCreateRequest) (reconcile.VariationPenalty, error)
	DeleteVariation(ctx context.Context, id uint) error

	ListRanges(ctx context.Context, variationID uint) ([]reconcile.PenaltyRange, error)
	CreateRange(ctx context.Context, payload dto.PenaltyRangeCreateRequest) (reconcile.PenaltyRange, error)
	UpdateRange(ctx context.Context, id uint, payload dto.PenaltyRangeUpdateRequest) (reconcile.PenaltyRange, error)
	DeleteRange(ctx context.Context, id uint) error
}

type penaltyService struct {
	repo        repository.PenaltyRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewPenaltyService constructs the penalty service. A nil cache disables caching.
func NewPenaltyService(repo repository.PenaltyRepository, assignments repository.AssignmentRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) PenaltyService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &penaltyService{
		repo:        repo,
		assignments: assignments,
		validator:   validate,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "penalty_service").Logger(),
	}
}

func penaltyCacheKey(assignmentID uint) string {
	return fmt.Sprintf("penalties:assignment:v1:%d", assignmentID)
}

func (s *penaltyService) Sources(ctx context.Context, assignmentID uint) (reconcile.PenaltySources, error) {
	cacheKey := penaltyCacheKey(assignmentID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var sources reconcile.PenaltySources
			if unmarshalErr := json.Unmarshal([]byte(cached), &sources); unmarshalErr == nil {
				observability.PenaltyCacheRequests().WithLabelValues("hit").Inc()
				return sources, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read penalty cache")
		}
	}

	flats, err := s.repo.ListFlat(ctx, assignmentID)
	if err != nil {
		return reconcile.PenaltySources{}, err
	}

	sources := reconcile.PenaltySources{
		Flat:   dto.NewFlatPenaltySlice(flats),
		Ranges: []reconcile.PenaltyRange{},
	}

	variation, err := s.repo.GetVariationByAssignment(ctx, assignmentID)
	switch {
	case err == nil:
		domain := variation.ToDomain()
		sources.Variation = &domain
		ranges, err := s.repo.ListRanges(ctx, variation.ID)
		if err != nil {
			return reconcile.PenaltySources{}, err
		}
		sources.Ranges = dto.NewPenaltyRangeSlice(ranges)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return reconcile.PenaltySources{}, err
	}

	observability.PenaltyCacheRequests().WithLabelValues("miss").Inc()

	if s.cache != nil {
		if payload, err := json.Marshal(sources); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store penalty cache")
			}
		}
	}

	return sources, nil
}

func (s *penaltyService) Aggregate(ctx context.Context, assignmentID uint, daysLate int) (reconcile.PenaltyDecision, error) {
	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reconcile.PenaltyDecision{}, ErrAssignmentNotFound
		}
		return reconcile.PenaltyDecision{}, err
	}

	sources, err := s.Sources(ctx, assignmentID)
	if err != nil {
		return reconcile.PenaltyDecision{}, err
	}

	decision := reconcile.AggregatePenalties(daysLate, sources)
	for _, warning := range decision.Warnings {
		s.logger.Warn().Uint("assignment_id", assignmentID).Msg(warning)
	}
	return decision, nil
}

func (s *penaltyService) ListFlat(ctx context.Context, assignmentID uint) ([]reconcile.FlatPenalty, error) {
	flats, err := s.repo.ListFlat(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return dto.NewFlatPenaltySlice(flats), nil
}

func (s *penaltyService) CreateFlat(ctx context.Context, payload dto.PenaltyCreateRequest) (reconcile.FlatPenalty, error) {
	if err := s.validator.Struct(payload); err != nil {
		return reconcile.FlatPenalty{}, err
	}
	if err := s.ensureAssignment(ctx, payload.AssignmentID); err != nil {
		return reconcile.FlatPenalty{}, err
	}

	penalty := models.Penalty{
		AssignmentID: payload.AssignmentID,
		Percentage:   payload.Percentage,
		Description:  payload.Description,
	}
	if err := s.repo.CreateFlat(ctx, &penalty); err != nil {
		return reconcile.FlatPenalty{}, err
	}

	s.invalidate(ctx, penalty.AssignmentID)
	s.logger.Info().Uint("penalty_id", penalty.ID).Uint("assignment_id", penalty.AssignmentID).Msg("flat penalty created")
	return penalty.ToDomain(), nil
}

func (s *penaltyService) UpdateFlat(ctx context.Context, id uint, payload dto.PenaltyUpdateRequest) (reconcile.FlatPenalty, error) {
	if err := s.validator.Struct(payload); err != nil {
		return reconcile.FlatPenalty{}, err
	}

	penalty, err := s.repo.GetFlat(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reconcile.FlatPenalty{}, ErrPenaltyNotFound
		}
		return reconcile.FlatPenalty{}, err
	}

	if payload.Percentage != nil {
		penalty.Percentage = *payload.Percentage
	}
	if payload.Description != nil {
		penalty.Description = *payload.Description
	}

	if err := s.repo.UpdateFlat(ctx, &penalty); err != nil {
		return reconcile.FlatPenalty{}, err
	}

	s.invalidate(ctx, penalty.AssignmentID)
	return penalty.ToDomain(), nil
}

func (s *penaltyService) DeleteFlat(ctx context.Context, id uint) error {
	penalty, err := s.repo.GetFlat(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPenaltyNotFound
		}
		return err
	}
	if err := s.repo.DeleteFlat(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPenaltyNotFound
		}
		return err
	}
	s.invalidate(ctx, penalty.AssignmentID)
	return nil
}

func (s *penaltyService) GetVariation(ctx context.Context, assignmentID uint) (reconcile.VariationPenalty, error) {
	variation, err := s.repo.GetVariationByAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reconcile.VariationPenalty{}, ErrVariationPenaltyNotFound
		}
		return reconcile.VariationPenalty{}, err
	}
	return variation.ToDomain(), nil
}

func (s *penaltyService) CreateVariation(ctx context.Context, payload dto.VariationPenaltyCreateRequest) (reconcile.VariationPenalty, error) {
	if err := s.validator.Struct(payload); err != nil {
		return reconcile.VariationPenalty{}, err
	}
	if err := s.ensureAssignment(ctx, payload.AssignmentID); err != nil {
		return reconcile.VariationPenalty{}, err
	}

	if _, err := s.repo.GetVariationByAssignment(ctx, payload.AssignmentID); err == nil {
		return reconcile.VariationPenalty{}, ErrVariationPenaltyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return reconcile.VariationPenalty{}, err
	}

	variation := models.VariationPenalty{AssignmentID: payload.AssignmentID, Name: payload.Name}
	if err := s.repo.CreateVariation(ctx, &variation); err != nil {
		return reconcile.VariationPenalty{}, err
	}

	s.invalidate(ctx, variation.AssignmentID)
	s.logger.Info().Uint("variation_penalty_id", variation.ID).Uint("assignment_id", variation.AssignmentID).Msg("variation penalty created")
	return variation.ToDomain(), nil
}

func (s *penaltyService) DeleteVariation(ctx context.Context, id uint) error {
	variation, err := s.loadVariation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteVariation(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVariationPenaltyNotFound
		}
		return err
	}
	s.invalidate(ctx, variation.AssignmentID)
	return nil
}

func (s *penaltyService) ListRanges(ctx context.Context, variationID uint) ([]reconcile.PenaltyRange, error) {
	ranges, err := s.repo.ListRanges(ctx, variationID)
	if err != nil {
		return nil, err
	}
	return dto.NewPenaltyRangeSlice(ranges), nil
}

func (s *penaltyService) CreateRange(ctx context.Context, payload dto.PenaltyRangeCreateRequest) (reconcile.PenaltyRange, error) {
	if err := s.validator.Struct(payload); err != nil {
		return reconcile.PenaltyRange{}, err
	}

	variation, err := s.loadVariation(ctx, payload.VariationPenaltyID)
	if err != nil {
		return reconcile.PenaltyRange{}, err
	}

	penaltyRange := models.PenaltyRange{
		VariationPenaltyID: variation.ID,
		DaysLate:           payload.DaysLate,
		Percentage:         payload.Percentage,
	}
	if err := s.repo.CreateRange(ctx, &penaltyRange); err != nil {
		return reconcile.PenaltyRange{}, err
	}

	s.warnOnDuplicateBound(ctx, variation.ID, penaltyRange)
	s.invalidate(ctx, variation.AssignmentID)
	return penaltyRange.ToDomain(), nil
}

func (s *penaltyService) UpdateRange(ctx context.Context, id uint, payload dto.PenaltyRangeUpdateRequest) (reconcile.PenaltyRange, error) {
	if err := s.validator.Struct(payload); err != nil {
		return reconcile.PenaltyRange{}, err
	}

	penaltyRange, err := s.repo.GetRange(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reconcile.PenaltyRange{}, ErrPenaltyRangeNotFound
		}
		return reconcile.PenaltyRange{}, err
	}

	if payload.DaysLate != nil {
		penaltyRange.DaysLate = *payload.DaysLate
	}
	if payload.Percentage != nil {
		penaltyRange.Percentage = *payload.Percentage
	}

	if err := s.repo.UpdateRange(ctx, &penaltyRange); err != nil {
		return reconcile.PenaltyRange{}, err
	}

	s.warnOnDuplicateBound(ctx, penaltyRange.VariationPenaltyID, penaltyRange)
	if variation, err := s.repo.GetVariation(ctx, penaltyRange.VariationPenaltyID); err == nil {
		s.invalidate(ctx, variation.AssignmentID)
	}
	return penaltyRange.ToDomain(), nil
}

func (s *penaltyService) DeleteRange(ctx context.Context, id uint) error {
	penaltyRange, err := s.repo.GetRange(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPenaltyRangeNotFound
		}
		return err
	}
	if err := s.repo.DeleteRange(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPenaltyRangeNotFound
		}
		return err
	}
	if variation, err := s.repo.GetVariation(ctx, penaltyRange.VariationPenaltyID); err == nil {
		s.invalidate(ctx, variation.AssignmentID)
	}
	return nil
}

func (s *penaltyService) ensureAssignment(ctx context.Context, id uint) error {
	if _, err := s.assignments.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}
	return nil
}

func (s *penaltyService) loadVariation(ctx context.Context, id uint) (models.VariationPenalty, error) {
	variation, err := s.repo.GetVariation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.VariationPenalty{}, ErrVariationPenaltyNotFound
		}
		return models.VariationPenalty{}, err
	}
	return variation, nil
}

// Overlapping lower bounds are accepted but logged; selection picks the highest percentage.
func (s *penaltyService) warnOnDuplicateBound(ctx context.Context, variationID uint, saved models.PenaltyRange) {
	ranges, err := s.repo.ListRanges(ctx, variationID)
	if err != nil {
		return
	}
	for _, existing := range ranges {
		if existing.ID != saved.ID && existing.DaysLate == saved.DaysLate {
			s.logger.Warn().
				Uint("variation_penalty_id", variationID).
				Int("days_late", saved.DaysLate).
				Msg("penalty ranges share a lower bound")
			return
		}
	}
}

func (s *penaltyService) invalidate(ctx context.Context, assignmentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, penaltyCacheKey(assignmentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to invalidate penalty cache")
	}
}
