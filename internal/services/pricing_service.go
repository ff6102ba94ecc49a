package services

import (
	"context"
	"fmt"

	"booking-system/internal/apperror"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/pricing"

	"github.com/google/uuid"
)

// ResourceLoader источник ресурсов для расчёта цены.
type ResourceLoader interface {
	GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
}

// PricedBooking цена бронирования до применения промокода.
type PricedBooking struct {
	Resource models.Resource
	Context  pricing.RuleContext
	Result   pricing.Result
}

// PricingService считает цену бронирования по тарифу ресурса.
type PricingService struct {
	resources        ResourceLoader
	log              *logger.Logger
	maxDurationHours float64
}

// NewPricingService создаёт сервис. maxDurationHours <= 0 снимает ограничение длительности.
func NewPricingService(resources ResourceLoader, log *logger.Logger, maxDurationHours float64) *PricingService {
	return &PricingService{
		resources:        resources,
		log:              log,
		maxDurationHours: maxDurationHours,
	}
}

// Price строит контекст запроса и выбирает стратегию цены.
func (s *PricingService) Price(ctx context.Context, req *models.QuoteRequest) (*PricedBooking, error) {
	if req.ResourceID == uuid.Nil {
		return nil, apperror.Validation("resource_id is required", nil)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if req.DurationHours != nil && *req.DurationHours < 0 {
		return nil, apperror.Validation("duration_hours must be non-negative", nil)
	}

	res, err := s.resources.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}

	rc, result, err := pricing.Calculate(pricing.ContextInput{
		Pricing:       res.Pricing,
		Date:          date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		DurationHours: req.DurationHours,
		PromoCode:     req.PromoCode,
	})
	if err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}
	if s.maxDurationHours > 0 && rc.DurationHours > s.maxDurationHours {
		return nil, apperror.Validation(fmt.Sprintf("booking duration %.2fh exceeds %.2fh", rc.DurationHours, s.maxDurationHours), nil)
	}

	if len(result.Issues) > 0 {
		entry := s.log.WithField("resource_id", res.ID)
		for _, issue := range result.Issues {
			entry.WithField("field", issue.Field).Warn("Skipping invalid pricing rule: " + issue.Message)
		}
	}

	s.log.WithFields(map[string]interface{}{
		"resource_id":    res.ID,
		"strategy":       result.Strategy,
		"adjusted_price": result.AdjustedPrice,
	}).Debug("Booking priced")

	return &PricedBooking{Resource: *res, Context: rc, Result: result}, nil
}
