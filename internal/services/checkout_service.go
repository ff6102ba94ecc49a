package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/pricing"
	"booking-system/internal/promo"
)

// CheckoutService собирает итоговую цену: тариф ресурса, затем промокод.
// Отказ по промокоду не мешает бронированию: цена считается без скидки, причина возвращается.
type CheckoutService struct {
	pricing *PricingService
	promos  *PromoService
	events  BookingEvents
	log     *logger.Logger
}

// NewCheckoutService создаёт сервис оформления. events может быть nil.
func NewCheckoutService(pricingSvc *PricingService, promos *PromoService, events BookingEvents, log *logger.Logger) *CheckoutService {
	return &CheckoutService{
		pricing: pricingSvc,
		promos:  promos,
		events:  events,
		log:     log,
	}
}

// Quote считает цену и проверяет промокод без записи в журнал.
func (s *CheckoutService) Quote(ctx context.Context, req *models.QuoteRequest) (*models.PriceQuote, error) {
	priced, err := s.pricing.Price(ctx, req)
	if err != nil {
		return nil, err
	}
	quote := newQuote(priced)

	if priced.Context.PromoCode == "" {
		return quote, nil
	}
	b := bookingDetails(priced, req)
	decision, err := s.promos.Preview(ctx, priced.Context.PromoCode, req.UserID, b)
	if err != nil {
		s.log.WithError(err).WithField("promo_code", priced.Context.PromoCode).Warn("Promo preview failed")
		quote.PromoError = "promo code could not be checked"
		return quote, nil
	}
	applyDecision(quote, priced.Context.PromoCode, decision)
	return quote, nil
}

// Checkout считает цену и применяет промокод с записью исхода в журнал.
func (s *CheckoutService) Checkout(ctx context.Context, req *models.QuoteRequest) (*models.PriceQuote, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperror.Validation("user_id is required", nil)
	}

	priced, err := s.pricing.Price(ctx, req)
	if err != nil {
		return nil, err
	}
	quote := newQuote(priced)

	if code := priced.Context.PromoCode; code != "" {
		decision, err := s.promos.Apply(ctx, ApplyRequest{
			Code:       code,
			UserID:     req.UserID,
			BookingID:  req.BookingID,
			ResourceID: priced.Resource.ID,
			Booking:    bookingDetails(priced, req),
			IPAddress:  req.IPAddress,
			UserAgent:  req.UserAgent,
		})
		switch {
		case err == nil:
			applyDecision(quote, code, decision)
		case errors.Is(err, ErrPromoOutcomeUnknown):
			return nil, apperror.Unavailable("promo application outcome unknown, retry checkout", err)
		case errors.Is(err, ErrPromoApplicationFailed):
			quote.PromoError = err.Error()
		default:
			return nil, err
		}
	}
	quote.Committed = true

	if s.events != nil {
		if err := s.events.PublishBookingPriced(models.BookingPricedData{
			ResourceID:    priced.Resource.ID,
			UserID:        req.UserID,
			BookingID:     req.BookingID,
			Strategy:      quote.Strategy,
			AdjustedPrice: quote.AdjustedPrice,
			FinalPrice:    quote.FinalPrice,
			PromoCode:     appliedCode(quote),
		}); err != nil {
			s.log.WithError(err).WithField("resource_id", priced.Resource.ID).Warn("Failed to publish booking priced event")
		}
	}

	s.log.WithFields(map[string]interface{}{
		"resource_id": priced.Resource.ID,
		"user_id":     req.UserID,
		"strategy":    quote.Strategy,
		"final_price": quote.FinalPrice,
	}).Info("Checkout priced")
	return quote, nil
}

func newQuote(priced *PricedBooking) *models.PriceQuote {
	r := priced.Result
	quote := &models.PriceQuote{
		ResourceID:         priced.Resource.ID,
		Strategy:           r.Strategy,
		BasePrice:          r.BasePrice,
		AdjustedPrice:      r.AdjustedPrice,
		FinalPrice:         r.AdjustedPrice,
		Breakdown:          r.Breakdown,
		AppliedMultipliers: r.AppliedMultipliers,
		TimeBlockMatch:     r.TimeBlockMatch,
	}
	if quote.AppliedMultipliers == nil {
		quote.AppliedMultipliers = []string{}
	}
	for _, issue := range r.Issues {
		quote.ConfigWarnings = append(quote.ConfigWarnings, issue.String())
	}
	return quote
}

func applyDecision(quote *models.PriceQuote, code string, d PromoDecision) {
	if !d.Verdict.Eligible {
		quote.PromoRejection = rejectionOf(d.Verdict)
		return
	}
	promoType := models.PromoType("")
	if d.Promo != nil {
		promoType = d.Promo.Type
	}
	quote.DiscountAmount = d.Discount.Amount
	quote.FinalPrice = d.Discount.FinalAmount
	quote.PromoCodeApplied = &models.AppliedPromo{
		Code:           code,
		Type:           promoType,
		DiscountAmount: d.Discount.Amount,
	}
}

func appliedCode(quote *models.PriceQuote) string {
	if quote.PromoCodeApplied == nil {
		return ""
	}
	return quote.PromoCodeApplied.Code
}

func bookingDetails(priced *PricedBooking, req *models.QuoteRequest) promo.BookingDetails {
	start := priced.Context.StartMinutes
	return promo.BookingDetails{
		Amount:                  priced.Result.AdjustedPrice,
		CategoryID:              priced.Resource.CategoryID,
		SpaceID:                 priced.Resource.ID.String(),
		LocationID:              priced.Resource.LocationID,
		Date:                    priced.Context.Date,
		StartMinutes:            &start,
		DurationHours:           priced.Context.DurationHours,
		HourlyRate:              priced.Context.Pricing.HourlyRate(),
		Quantity:                req.Quantity,
		IsFirstBooking:          req.IsFirstBooking,
		IsNewUser:               req.IsNewUser,
		PlatformDiscountApplied: req.PlatformDiscountApplied,
		SpaceDiscountApplied:    req.SpaceDiscountApplied,
		OtherPromoCodes:         req.OtherPromoCodes,
	}
}

func parseDate(value string) (time.Time, error) {
	date, err := pricing.ParseDate(value)
	if err != nil {
		return time.Time{}, apperror.Validation(err.Error(), err)
	}
	return date, nil
}

func parseTimeOfDay(value string) (int, error) {
	minutes, err := pricing.ParseTimeOfDay(value)
	if err != nil {
		return 0, apperror.Validation(err.Error(), err)
	}
	return minutes, nil
}
