package promo

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"booking-system/internal/models"
	"booking-system/internal/pricing"
)

// ErrInvalidDefinition промокод не проходит проверку при создании или изменении.
var ErrInvalidDefinition = errors.New("invalid promo code")

var codePattern = regexp.MustCompile(`^[A-Z0-9_]{3,20}$`)

// NormalizeCode приводит код к каноническому виду.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}

// ValidateDefinition проверяет инварианты определения промокода.
func ValidateDefinition(p models.PromoCode) error {
	if !codePattern.MatchString(p.Code) {
		return invalid("code must be 3-20 characters of A-Z, 0-9 or _")
	}

	switch p.Type {
	case models.PromoTypePercentage:
		if p.Value < 0 || p.Value > 100 {
			return invalid("percentage value must be between 0 and 100")
		}
	case models.PromoTypeFixedAmount, models.PromoTypeFreeHours, models.PromoTypeBuyOneGetOne:
		if p.Value < 0 {
			return invalid("value must be non-negative")
		}
	default:
		return invalid("unknown type %q", p.Type)
	}

	switch p.Scope {
	case models.PromoScopeGlobal, models.PromoScopeCategory, models.PromoScopeSpace,
		models.PromoScopeUser, models.PromoScopeFirstTimeUser:
	default:
		return invalid("unknown scope %q", p.Scope)
	}

	if !p.ValidFrom.Before(p.ValidUntil) {
		return invalid("valid_from must be before valid_until")
	}
	if p.UsageLimit != nil && *p.UsageLimit < 0 {
		return invalid("usage_limit must be non-negative")
	}
	if p.UsageLimit != nil && p.CurrentUsage > *p.UsageLimit {
		return invalid("usage_limit is below current usage %d", p.CurrentUsage)
	}

	return validateRestrictions(p.Restrictions)
}

func validateRestrictions(r models.Restrictions) error {
	if r.MinOrderAmount != nil && r.MaxOrderAmount != nil && *r.MinOrderAmount > *r.MaxOrderAmount {
		return invalid("min_order_amount exceeds max_order_amount")
	}
	if r.MaxDiscountAmount != nil && *r.MaxDiscountAmount < 0 {
		return invalid("max_discount_amount must be non-negative")
	}
	if r.MinBookingDuration != nil && r.MaxBookingDuration != nil && *r.MinBookingDuration > *r.MaxBookingDuration {
		return invalid("min_booking_duration exceeds max_booking_duration")
	}
	for _, day := range r.AllowedDaysOfWeek {
		if day < 0 || day > 6 {
			return invalid("day of week %d outside 0-6", day)
		}
	}
	for _, slot := range r.AllowedTimeSlots {
		if _, _, ok := parseSlot(slot); !ok {
			return invalid("time slot %s-%s is malformed", slot.Start, slot.End)
		}
	}
	if r.MaxUsesPerUser != nil && *r.MaxUsesPerUser <= 0 {
		return invalid("max_uses_per_user must be positive")
	}
	if r.MaxUsesPerDay != nil && *r.MaxUsesPerDay <= 0 {
		return invalid("max_uses_per_day must be positive")
	}
	if r.CooldownPeriodHours != nil && *r.CooldownPeriodHours < 0 {
		return invalid("cooldown_period_hours must be non-negative")
	}
	return nil
}

func parseSlot(slot models.TimeSlot) (int, int, bool) {
	start, err := pricing.ParseTimeOfDay(slot.Start)
	if err != nil {
		return 0, 0, false
	}
	end, err := pricing.ParseTimeOfDay(slot.End)
	if err != nil || end <= start {
		return 0, 0, false
	}
	return start, end, true
}
