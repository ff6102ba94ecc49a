package services

import (
	"context"
	"testing"

	"booking-system/internal/apperror"
	"booking-system/internal/models"
	"booking-system/internal/repository"

	"github.com/google/uuid"
)

func newTestPricing(t *testing.T, cfg models.PricingConfig) (*PricingService, uuid.UUID) {
	t.Helper()
	resources := NewResourceService(repository.NewMemoryResourceRepository(), nil, nil, newTestLogger(), newTestClock(), 0)
	res, err := resources.CreateResource(context.Background(), &models.CreateResourceRequest{Name: "Studio", Pricing: &cfg})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	return NewPricingService(resources, newTestLogger(), 24), res.ID
}

func TestPricingService_WeekendQuote(t *testing.T) {
	svc, id := newTestPricing(t, models.PricingConfig{BasePrice: 500, PriceType: models.PriceTypeHourly, WeekendMultiplier: 1.2})

	priced, err := svc.Price(context.Background(), &models.QuoteRequest{
		ResourceID: id,
		Date:       saturday,
		StartTime:  "10:00",
		EndTime:    "12:00",
		PromoCode:  " spring10 ",
	})
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if priced.Result.AdjustedPrice != 1200 {
		t.Fatalf("expected 1200, got %d", priced.Result.AdjustedPrice)
	}
	if priced.Result.Strategy != models.StrategyRegular {
		t.Fatalf("expected regular strategy, got %s", priced.Result.Strategy)
	}
	if priced.Context.PromoCode != "SPRING10" {
		t.Fatalf("expected normalized promo code, got %q", priced.Context.PromoCode)
	}
}

func TestPricingService_TimeBlock(t *testing.T) {
	svc, id := newTestPricing(t, models.PricingConfig{
		BasePrice: 500,
		PriceType: models.PriceTypeHourly,
		TimeBlocks: []models.TimeBlock{
			{DurationHours: 8, Price: 3000, Title: "Full day"},
			{DurationHours: 4, Price: 1200, Title: "Half day"},
		},
	})

	priced, err := svc.Price(context.Background(), &models.QuoteRequest{ResourceID: id, Date: "2024-03-04", StartTime: "09:00", EndTime: "12:00"})
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if priced.Result.Strategy != models.StrategyTimeBlock || priced.Result.AdjustedPrice != 1200 {
		t.Fatalf("expected time block 1200, got %s %d", priced.Result.Strategy, priced.Result.AdjustedPrice)
	}
	if priced.Result.TimeBlockMatch == nil || priced.Result.TimeBlockMatch.Savings != 300 {
		t.Fatalf("expected savings 300, got %+v", priced.Result.TimeBlockMatch)
	}
}

func TestPricingService_Validation(t *testing.T) {
	svc, id := newTestPricing(t, models.PricingConfig{BasePrice: 500})
	negative := -1.0

	cases := []struct {
		name string
		req  models.QuoteRequest
	}{
		{"missing resource", models.QuoteRequest{Date: saturday, StartTime: "10:00", EndTime: "12:00"}},
		{"bad date", models.QuoteRequest{ResourceID: id, Date: "09/03/2024", StartTime: "10:00", EndTime: "12:00"}},
		{"bad time", models.QuoteRequest{ResourceID: id, Date: saturday, StartTime: "25:00", EndTime: "12:00"}},
		{"end before start", models.QuoteRequest{ResourceID: id, Date: saturday, StartTime: "12:00", EndTime: "10:00"}},
		{"negative duration", models.QuoteRequest{ResourceID: id, Date: saturday, StartTime: "10:00", EndTime: "12:00", DurationHours: &negative}},
	}
	for _, tc := range cases {
		if _, err := svc.Price(context.Background(), &tc.req); !apperror.Is(err, apperror.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestPricingService_MaxDuration(t *testing.T) {
	svc, id := newTestPricing(t, models.PricingConfig{BasePrice: 500})
	long := 30.0

	_, err := svc.Price(context.Background(), &models.QuoteRequest{ResourceID: id, Date: saturday, StartTime: "10:00", EndTime: "12:00", DurationHours: &long})
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for long booking, got %v", err)
	}
}

func TestPricingService_UnknownResource(t *testing.T) {
	svc, _ := newTestPricing(t, models.PricingConfig{BasePrice: 500})

	_, err := svc.Price(context.Background(), &models.QuoteRequest{ResourceID: uuid.New(), Date: saturday, StartTime: "10:00", EndTime: "12:00"})
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
