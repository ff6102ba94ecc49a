package promo

import (
	"time"

	"booking-system/internal/models"
)

// BookingDetails данные бронирования, нужные для проверки и расчёта скидки.
// Категории, площадки и локации сравниваются как непрозрачные идентификаторы.
type BookingDetails struct {
	Amount                  int64
	CategoryID              string
	SpaceID                 string
	LocationID              string
	Date                    time.Time
	StartMinutes            *int
	DurationHours           float64
	HourlyRate              int64
	Quantity                int
	IsFirstBooking          bool
	IsNewUser               bool
	PlatformDiscountApplied bool
	SpaceDiscountApplied    bool
	OtherPromoCodes         []string
}

// Verdict результат проверки: либо подходит, либо отказ с кодом причины.
type Verdict struct {
	Eligible bool
	Reason   Reason
}

// Eligible вердикт "промокод подходит".
func Eligible() Verdict { return Verdict{Eligible: true} }

// Rejected вердикт отказа.
func Rejected(reason Reason) Verdict { return Verdict{Reason: reason} }

type check func(p models.PromoCode, userID string, b BookingDetails, now time.Time) (Reason, bool)

// Порядок проверок фиксирован: первая не прошедшая определяет причину отказа.
var checks = []check{
	checkValidity,
	checkApplicableUsers,
	checkExcludedUsers,
	checkUserLimit,
	checkCooldown,
	checkOrderAmount,
	checkCategoryAndSpace,
	checkLocation,
	checkDayOfWeek,
	checkDuration,
	checkTimeSlot,
	checkDailyLimit,
	checkAudience,
	checkStacking,
}

// Evaluate проверяет промокод для пользователя и бронирования.
// Статус сверяется на копии, повторный вызов на том же состоянии даёт тот же результат.
func Evaluate(p models.PromoCode, userID string, b BookingDetails, now time.Time) Verdict {
	p = Reconcile(p, now)
	for _, c := range checks {
		if reason, ok := c(p, userID, b, now); !ok {
			return Rejected(reason)
		}
	}
	return Eligible()
}

func checkValidity(p models.PromoCode, _ string, _ BookingDetails, now time.Time) (Reason, bool) {
	switch {
	case p.DeletedAt != nil:
		return ReasonInvalid, false
	case p.Status == models.PromoStatusExpired || now.After(p.ValidUntil):
		return ReasonExpired, false
	case p.Status == models.PromoStatusExhausted || p.LimitReached():
		return ReasonExhausted, false
	case p.Status != models.PromoStatusActive || now.Before(p.ValidFrom):
		return ReasonInactive, false
	}
	return "", true
}

func checkApplicableUsers(p models.PromoCode, userID string, _ BookingDetails, _ time.Time) (Reason, bool) {
	users := p.Restrictions.ApplicableUsers
	if len(users) > 0 && !contains(users, userID) {
		return ReasonUserNotEligible, false
	}
	return "", true
}

func checkExcludedUsers(p models.PromoCode, userID string, _ BookingDetails, _ time.Time) (Reason, bool) {
	if contains(p.Restrictions.ExcludedUsers, userID) {
		return ReasonUserExcluded, false
	}
	return "", true
}

func checkUserLimit(p models.PromoCode, userID string, _ BookingDetails, _ time.Time) (Reason, bool) {
	limit := p.Restrictions.MaxUsesPerUser
	if limit == nil {
		return "", true
	}
	used := 0
	for _, rec := range p.UsageHistory {
		if rec.UserID == userID {
			used++
		}
	}
	if used >= *limit {
		return ReasonUserLimitExceeded, false
	}
	return "", true
}

func checkCooldown(p models.PromoCode, userID string, _ BookingDetails, now time.Time) (Reason, bool) {
	hours := p.Restrictions.CooldownPeriodHours
	if hours == nil || *hours <= 0 {
		return "", true
	}
	last, ok := lastUsageBy(p.UsageHistory, userID)
	if !ok {
		return "", true
	}
	cooldown := time.Duration(*hours * float64(time.Hour))
	if !now.After(last.Add(cooldown)) {
		return ReasonCooldownActive, false
	}
	return "", true
}

func checkOrderAmount(p models.PromoCode, _ string, b BookingDetails, _ time.Time) (Reason, bool) {
	r := p.Restrictions
	if r.MinOrderAmount != nil && b.Amount < *r.MinOrderAmount {
		return ReasonMinOrderNotMet, false
	}
	if r.MaxOrderAmount != nil && b.Amount > *r.MaxOrderAmount {
		return ReasonMaxOrderExceeded, false
	}
	return "", true
}

func checkCategoryAndSpace(p models.PromoCode, _ string, b BookingDetails, _ time.Time) (Reason, bool) {
	r := p.Restrictions
	if len(r.ApplicableCategories) > 0 && !contains(r.ApplicableCategories, b.CategoryID) {
		return ReasonCategoryNotApplicable, false
	}
	if contains(r.ExcludedCategories, b.CategoryID) {
		return ReasonCategoryExcluded, false
	}
	if len(r.ApplicableSpaces) > 0 && !contains(r.ApplicableSpaces, b.SpaceID) {
		return ReasonSpaceNotApplicable, false
	}
	if contains(r.ExcludedSpaces, b.SpaceID) {
		return ReasonSpaceExcluded, false
	}
	return "", true
}

func checkLocation(p models.PromoCode, _ string, b BookingDetails, _ time.Time) (Reason, bool) {
	r := p.Restrictions
	if len(r.ApplicableLocations) > 0 && !contains(r.ApplicableLocations, b.LocationID) {
		return ReasonLocationNotApplicable, false
	}
	if contains(r.ExcludedLocations, b.LocationID) {
		return ReasonLocationExcluded, false
	}
	return "", true
}

func checkDayOfWeek(p models.PromoCode, _ string, b BookingDetails, _ time.Time) (Reason, bool) {
	days := p.Restrictions.AllowedDaysOfWeek
	if len(days) == 0 {
		return "", true
	}
	day := int(b.Date.Weekday())
	for _, d := range days {
		if d == day {
			return "", true
		}
	}
	return ReasonDayNotApplicable, false
}

func checkDuration(p models.PromoCode, _ string, b BookingDetails, _ time.Time) (Reason, bool) {
	r := p.Restrictions
	if r.MinBookingDuration != nil && b.DurationHours < *r.MinBookingDuration {
		return ReasonMinDurationNotMet, false
	}
	if r.MaxBookingDuration != nil && b.DurationHours > *r.MaxBookingDuration {
		return ReasonMaxDurationExceeded, false
	}
	return "", true
}

func checkTimeSlot(p models.PromoCode, _ string, b BookingDetails, _ time.Time) (Reason, bool) {
	slots := p.Restrictions.AllowedTimeSlots
	if len(slots) == 0 {
		return "", true
	}
	if b.StartMinutes == nil {
		return ReasonTimeSlotNotApplicable, false
	}
	for _, slot := range slots {
		start, end, ok := parseSlot(slot)
		if ok && *b.StartMinutes >= start && *b.StartMinutes < end {
			return "", true
		}
	}
	return ReasonTimeSlotNotApplicable, false
}

func checkDailyLimit(p models.PromoCode, _ string, _ BookingDetails, now time.Time) (Reason, bool) {
	limit := p.Restrictions.MaxUsesPerDay
	if limit == nil {
		return "", true
	}
	day := now.UTC().Format("2006-01-02")
	used := 0
	for _, rec := range p.UsageHistory {
		if rec.UsedAt.UTC().Format("2006-01-02") == day {
			used++
		}
	}
	if used >= *limit {
		return ReasonDailyLimitExceeded, false
	}
	return "", true
}

func checkAudience(p models.PromoCode, _ string, b BookingDetails, _ time.Time) (Reason, bool) {
	firstOnly := p.Restrictions.FirstBookingOnly || p.Scope == models.PromoScopeFirstTimeUser
	if firstOnly && !b.IsFirstBooking {
		return ReasonFirstBookingOnly, false
	}
	if p.Restrictions.NewUsersOnly && !b.IsNewUser {
		return ReasonNewUsersOnly, false
	}
	return "", true
}

func checkStacking(p models.PromoCode, _ string, b BookingDetails, _ time.Time) (Reason, bool) {
	s := p.StackingRules
	if b.PlatformDiscountApplied && !s.CanStackWithPlatformDiscounts {
		return ReasonStackingNotAllowed, false
	}
	if b.SpaceDiscountApplied && !s.CanStackWithSpaceDiscounts {
		return ReasonStackingNotAllowed, false
	}
	if len(b.OtherPromoCodes) == 0 {
		return "", true
	}
	if !s.CanStackWithOtherPromos {
		return ReasonStackingNotAllowed, false
	}
	for _, other := range b.OtherPromoCodes {
		other = NormalizeCode(other)
		if contains(s.DeniedCodes, other) {
			return ReasonStackingNotAllowed, false
		}
		if len(s.AllowedCodes) > 0 && !contains(s.AllowedCodes, other) {
			return ReasonStackingNotAllowed, false
		}
	}
	return "", true
}

func lastUsageBy(history []models.UsageRecord, userID string) (time.Time, bool) {
	var (
		last  time.Time
		found bool
	)
	for _, rec := range history {
		if rec.UserID != userID {
			continue
		}
		if !found || rec.UsedAt.After(last) {
			last = rec.UsedAt
			found = true
		}
	}
	return last, found
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
