package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/dto"
	"github.com/noah-isme/gema-lms/internal/models"
	"github.com/noah-isme/gema-lms/internal/observability"
	"github.com/noah-isme/gema-lms/internal/repository"
)

// ErrInvalidAnnouncementWindow rejects an announcement ending before it starts.
var ErrInvalidAnnouncementWindow = errors.New("announcement must end after it starts")

// AnnouncementService exposes course announcement operations.
type AnnouncementService interface {
	ListActive(ctx context.Context, courseID uint, page, pageSize int) (dto.AnnouncementListResponse, error)
	Create(ctx context.Context, payload dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error)
}

type announcementService struct {
	repo      repository.AnnouncementRepository
	courses   repository.CourseRepository
	validator *validator.Validate
	cache     *redis.Client
	ttl       time.Duration
	logger    zerolog.Logger
	policy    *bluemonday.Policy
	now       func() time.Time
}

// NewAnnouncementService constructs the announcement service.
func NewAnnouncementService(repo repository.AnnouncementRepository, courses repository.CourseRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnnouncementService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("p", "strong", "em", "a", "ul", "ol", "li", "br")
	policy.AllowAttrs("href", "title", "target").OnElements("a")
	return &announcementService{
		repo:      repo,
		courses:   courses,
		validator: validate,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.With().Str("component", "announcement_service").Logger(),
		policy:    policy,
		now:       time.Now,
	}
}

func announcementCachePrefix(courseID uint) string {
	return fmt.Sprintf("announcements:course:v1:%d:", courseID)
}

func (s *announcementService) ListActive(ctx context.Context, courseID uint, page, pageSize int) (dto.AnnouncementListResponse, error) {
	page = maxInt(page, 1)
	pageSize = clampPageSize(pageSize)

	cacheKey := ""
	if s.cache != nil {
		cacheKey = fmt.Sprintf("%s%d:%d", announcementCachePrefix(courseID), page, pageSize)
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.AnnouncementListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				observability.AnnouncementsRequests().WithLabelValues("hit").Inc()
				return response, nil
			}
		}
	}

	items, total, err := s.repo.ListActive(ctx, repository.AnnouncementFilter{
		CourseID: courseID,
		Page:     page,
		PageSize: pageSize,
		Now:      s.now(),
	})
	if err != nil {
		observability.AnnouncementsRequests().WithLabelValues("error").Inc()
		return dto.AnnouncementListResponse{}, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsPinned != items[j].IsPinned {
			return items[i].IsPinned
		}
		return items[i].StartsAt.After(items[j].StartsAt)
	})

	responses := make([]dto.AnnouncementResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, s.toResponse(item))
	}

	pagination := dto.PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}

	response := dto.AnnouncementListResponse{Items: responses, Pagination: pagination}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache announcements")
			}
		}
	}

	observability.AnnouncementsRequests().WithLabelValues("miss").Inc()

	return response, nil
}

func (s *announcementService) Create(ctx context.Context, payload dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	if _, err := s.courses.GetByID(ctx, payload.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnnouncementResponse{}, ErrCourseNotFound
		}
		return dto.AnnouncementResponse{}, err
	}

	startsAt := s.now()
	if payload.StartsAt != nil {
		startsAt = *payload.StartsAt
	}
	if payload.EndsAt != nil && !payload.EndsAt.After(startsAt) {
		return dto.AnnouncementResponse{}, ErrInvalidAnnouncementWindow
	}

	announcement := models.Announcement{
		CourseID: payload.CourseID,
		Title:    strings.TrimSpace(payload.Title),
		Body:     s.policy.Sanitize(payload.Body),
		StartsAt: startsAt,
		EndsAt:   payload.EndsAt,
		IsPinned: payload.IsPinned,
	}
	if err := s.repo.Create(ctx, &announcement); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.invalidate(ctx, announcement.CourseID)
	s.logger.Info().Uint("announcement_id", announcement.ID).Uint("course_id", announcement.CourseID).Msg("announcement created")

	return s.toResponse(announcement), nil
}

func (s *announcementService) toResponse(item models.Announcement) dto.AnnouncementResponse {
	return dto.AnnouncementResponse{
		ID:        item.ID,
		CourseID:  item.CourseID,
		Title:     strings.TrimSpace(item.Title),
		Body:      s.policy.Sanitize(item.Body),
		StartsAt:  item.StartsAt,
		EndsAt:    item.EndsAt,
		IsPinned:  item.IsPinned,
		CreatedAt: item.CreatedAt,
	}
}

func (s *announcementService) invalidate(ctx context.Context, courseID uint) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, announcementCachePrefix(courseID)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan announcement cache")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate announcement cache")
	}
}
