package promo

import (
	"math"

	"booking-system/internal/models"
	"booking-system/internal/pricing"
)

// Discount сумма скидки и итог к оплате.
type Discount struct {
	Amount      int64
	FinalAmount int64
}

// Calculate считает скидку по типу промокода. Скидка не превышает исходную сумму
// и ограничена maxDiscountAmount, итог не бывает отрицательным.
func Calculate(p models.PromoCode, originalAmount int64, b BookingDetails) Discount {
	if originalAmount <= 0 {
		return Discount{}
	}
	original := float64(originalAmount)

	var raw float64
	switch p.Type {
	case models.PromoTypePercentage:
		raw = original * p.Value / 100
	case models.PromoTypeFixedAmount:
		raw = math.Min(p.Value, original)
	case models.PromoTypeFreeHours:
		if b.HourlyRate > 0 {
			raw = math.Min(p.Value*float64(b.HourlyRate), original)
		}
	case models.PromoTypeBuyOneGetOne:
		if b.Quantity >= 2 {
			raw = original / 2
		}
	}

	if limit := p.Restrictions.MaxDiscountAmount; limit != nil && raw > float64(*limit) {
		raw = float64(*limit)
	}
	raw = math.Max(0, math.Min(raw, original))

	amount := pricing.RoundMoney(raw)
	if amount > originalAmount {
		amount = originalAmount
	}
	final := originalAmount - amount
	if final < 0 {
		final = 0
	}
	return Discount{Amount: amount, FinalAmount: final}
}
