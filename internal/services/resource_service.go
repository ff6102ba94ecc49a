package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/clock"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/pricing"
	"booking-system/internal/redis"
	"booking-system/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ResourceService управляет ресурсами и их тарифами. Чтения идут через кеш,
// одновременные промахи по одному ресурсу схлопываются в один запрос к базе.
type ResourceService struct {
	repo     repository.ResourceRepository
	cache    Cache
	events   ResourceEvents
	log      *logger.Logger
	clock    clock.Clock
	cacheTTL time.Duration
	loads    singleflight.Group
}

// NewResourceService создаёт сервис ресурсов. cache и events могут быть nil.
func NewResourceService(repo repository.ResourceRepository, cache Cache, events ResourceEvents, log *logger.Logger, clk clock.Clock, cacheTTL time.Duration) *ResourceService {
	return &ResourceService{
		repo:     repo,
		cache:    cache,
		events:   events,
		log:      log,
		clock:    clk,
		cacheTTL: cacheTTL,
	}
}

// CreateResource создаёт ресурс. Тариф задаётся либо pricing, либо списком rules.
func (s *ResourceService) CreateResource(ctx context.Context, req *models.CreateResourceRequest) (*models.Resource, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required", nil)
	}
	if req.Pricing == nil && len(req.Rules) == 0 {
		return nil, apperror.Validation("pricing or rules is required", nil)
	}
	cfg, err := resolvePricingInput(req.Pricing, req.Rules)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	res := models.Resource{
		ID:         uuid.New(),
		Name:       name,
		CategoryID: req.CategoryID,
		LocationID: req.LocationID,
		Pricing:    cfg,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, mapRepositoryError(err, "resource")
	}

	s.log.WithFields(map[string]interface{}{
		"resource_id": res.ID,
		"price_type":  res.Pricing.PriceType,
	}).Info("Resource created")
	return &res, nil
}

// GetResource возвращает ресурс, сначала из кеша.
func (s *ResourceService) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	key := redis.GenerateKey(redis.KeyPrefixResource, id.String())

	if s.cache != nil {
		var cached models.Resource
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithError(err).WithField("resource_id", id).Warn("Resource cache read failed")
		}
	}

	v, err, _ := s.loads.Do(id.String(), func() (interface{}, error) {
		res, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
				s.log.WithError(err).WithField("resource_id", id).Warn("Resource cache write failed")
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, mapRepositoryError(err, "resource")
	}
	res := v.(models.Resource)
	return &res, nil
}

// ListResources возвращает страницу ресурсов.
func (s *ResourceService) ListResources(ctx context.Context, limit, offset int) ([]models.Resource, error) {
	resources, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

// UpdateResource меняет ресурс и сбрасывает кеш. Если поменялся тариф, публикует событие.
func (s *ResourceService) UpdateResource(ctx context.Context, id uuid.UUID, req *models.UpdateResourceRequest) (*models.Resource, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err, "resource")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name must not be empty", nil)
		}
		res.Name = name
	}
	if req.CategoryID != nil {
		res.CategoryID = *req.CategoryID
	}
	if req.LocationID != nil {
		res.LocationID = *req.LocationID
	}

	pricingChanged := req.Pricing != nil || len(req.Rules) > 0
	if pricingChanged {
		cfg, err := resolvePricingInput(req.Pricing, req.Rules)
		if err != nil {
			return nil, err
		}
		res.Pricing = cfg
	}
	res.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, mapRepositoryError(err, "resource")
	}
	s.evict(ctx, id)

	if pricingChanged && s.events != nil {
		if err := s.events.PublishResourcePricingUpdated(id); err != nil {
			s.log.WithError(err).WithField("resource_id", id).Warn("Failed to publish pricing update")
		}
	}
	return &res, nil
}

// DeleteResource удаляет ресурс.
func (s *ResourceService) DeleteResource(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepositoryError(err, "resource")
	}
	s.evict(ctx, id)
	return nil
}

// InvalidateResource сбрасывает кеш ресурса по событию от другой реплики.
func (s *ResourceService) InvalidateResource(ctx context.Context, id uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, redis.GenerateKey(redis.KeyPrefixResource, id.String()))
}

func (s *ResourceService) evict(ctx context.Context, id uuid.UUID) {
	if err := s.InvalidateResource(ctx, id); err != nil {
		s.log.WithError(err).WithField("resource_id", id).Warn("Resource cache eviction failed")
	}
}

// resolvePricingInput переводит вход в каноническую конфигурацию и строго её проверяет:
// при записи некорректные правила не пропускаются, а отклоняются.
func resolvePricingInput(cfg *models.PricingConfig, rules []models.PricingRule) (models.PricingConfig, error) {
	if cfg != nil && len(rules) > 0 {
		return models.PricingConfig{}, apperror.Validation("pricing and rules are mutually exclusive", nil)
	}

	var out models.PricingConfig
	switch {
	case cfg != nil:
		out = *cfg
	case len(rules) > 0:
		translated, issues := pricing.FromRules(rules)
		if len(issues) > 0 {
			parts := make([]string, 0, len(issues))
			for _, issue := range issues {
				parts = append(parts, issue.String())
			}
			err := fmt.Errorf("%w: %s", pricing.ErrInvalidPricingConfig, strings.Join(parts, "; "))
			return models.PricingConfig{}, apperror.Validation(err.Error(), err)
		}
		out = translated
	default:
		return models.PricingConfig{}, nil
	}

	if out.PriceType == "" {
		out.PriceType = models.PriceTypeHourly
	}
	if err := pricing.ValidateConfig(out); err != nil {
		return models.PricingConfig{}, apperror.Validation(err.Error(), err)
	}
	return out, nil
}

func mapRepositoryError(err error, entity string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound(entity+" not found", err)
	case errors.Is(err, repository.ErrAlreadyExists):
		return apperror.Conflict(entity+" already exists", err)
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return apperror.Conflict(entity+" was modified concurrently, retry", err)
	}
	return fmt.Errorf("%s storage failure: %w", entity, err)
}
