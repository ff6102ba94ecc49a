package handlers

import (
	"context"

	"booking-system/internal/models"

	"github.com/google/uuid"
)

// ----- Resources -----

type ResourceService interface {
	CreateResource(ctx context.Context, req *models.CreateResourceRequest) (*models.Resource, error)
	GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	ListResources(ctx context.Context, limit, offset int) ([]models.Resource, error)
	UpdateResource(ctx context.Context, id uuid.UUID, req *models.UpdateResourceRequest) (*models.Resource, error)
	DeleteResource(ctx context.Context, id uuid.UUID) error
}

// ----- Promo -----

type PromoService interface {
	CreatePromoCode(ctx context.Context, req *models.CreatePromoCodeRequest) (*models.PromoCode, error)
	GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	UpdatePromoCode(ctx context.Context, code string, req *models.UpdatePromoCodeRequest) (*models.PromoCode, error)
	DeletePromoCode(ctx context.Context, code string) error
	ListPromoCodes(ctx context.Context, limit, offset int) ([]models.PromoCode, error)
	PausePromoCode(ctx context.Context, code, reason string) (*models.PromoCode, error)
	ResumePromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	ValidatePromoCode(ctx context.Context, code string, req *models.PromoValidationRequest) (*models.PromoValidationResult, error)
}

// ----- Checkout -----

type CheckoutService interface {
	Quote(ctx context.Context, req *models.QuoteRequest) (*models.PriceQuote, error)
	Checkout(ctx context.Context, req *models.QuoteRequest) (*models.PriceQuote, error)
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
