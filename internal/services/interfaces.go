package services

import (
	"context"
	"time"

	"booking-system/internal/models"

	"github.com/google/uuid"
)

// Cache JSON-кеш с TTL (Redis).
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
}

// ViewCounter счётчики просмотров промокодов, которые ещё не перенесены в аналитику.
type ViewCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	DecrBy(ctx context.Context, key string, n int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	GetInt(ctx context.Context, key string) (int64, error)
}

// PromoEvents публикация событий промокодов.
type PromoEvents interface {
	PublishPromoApplied(data models.PromoAppliedData) error
	PublishPromoRejected(data models.PromoRejectedData) error
	PublishPromoStatusChanged(code string, oldStatus, newStatus models.PromoStatus, reason string) error
}

// BookingEvents публикация событий о бронированиях.
type BookingEvents interface {
	PublishBookingPriced(data models.BookingPricedData) error
}

// ResourceEvents публикация событий о тарифах ресурсов.
type ResourceEvents interface {
	PublishResourcePricingUpdated(resourceID uuid.UUID) error
}
