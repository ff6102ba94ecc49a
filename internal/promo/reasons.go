package promo

// Reason код отказа в применении промокода. Набор закрыт.
type Reason string

const (
	ReasonInvalid               Reason = "INVALID"
	ReasonExpired               Reason = "EXPIRED"
	ReasonExhausted             Reason = "EXHAUSTED"
	ReasonInactive              Reason = "INACTIVE"
	ReasonUserNotEligible       Reason = "USER_NOT_ELIGIBLE"
	ReasonUserExcluded          Reason = "USER_EXCLUDED"
	ReasonUserLimitExceeded     Reason = "USER_LIMIT_EXCEEDED"
	ReasonCooldownActive        Reason = "COOLDOWN_ACTIVE"
	ReasonMinOrderNotMet        Reason = "MIN_ORDER_NOT_MET"
	ReasonMaxOrderExceeded      Reason = "MAX_ORDER_EXCEEDED"
	ReasonCategoryNotApplicable Reason = "CATEGORY_NOT_APPLICABLE"
	ReasonCategoryExcluded      Reason = "CATEGORY_EXCLUDED"
	ReasonSpaceNotApplicable    Reason = "SPACE_NOT_APPLICABLE"
	ReasonSpaceExcluded         Reason = "SPACE_EXCLUDED"
	ReasonLocationNotApplicable Reason = "LOCATION_NOT_APPLICABLE"
	ReasonLocationExcluded      Reason = "LOCATION_EXCLUDED"
	ReasonDayNotApplicable      Reason = "DAY_NOT_APPLICABLE"
	ReasonMinDurationNotMet     Reason = "MIN_DURATION_NOT_MET"
	ReasonMaxDurationExceeded   Reason = "MAX_DURATION_EXCEEDED"
	ReasonTimeSlotNotApplicable Reason = "TIME_SLOT_NOT_APPLICABLE"
	ReasonDailyLimitExceeded    Reason = "DAILY_LIMIT_EXCEEDED"
	ReasonFirstBookingOnly      Reason = "FIRST_BOOKING_ONLY"
	ReasonNewUsersOnly          Reason = "NEW_USERS_ONLY"
	ReasonStackingNotAllowed    Reason = "STACKING_NOT_ALLOWED"
)

var reasonMessages = map[Reason]string{
	ReasonInvalid:               "Promo code is not valid",
	ReasonExpired:               "Promo code has expired",
	ReasonExhausted:             "Promo code usage limit has been reached",
	ReasonInactive:              "Promo code is not active",
	ReasonUserNotEligible:       "Promo code is not available for this user",
	ReasonUserExcluded:          "Promo code cannot be used by this user",
	ReasonUserLimitExceeded:     "Promo code usage limit per user has been reached",
	ReasonCooldownActive:        "Promo code was used recently, try again later",
	ReasonMinOrderNotMet:        "Order amount is below the promo code minimum",
	ReasonMaxOrderExceeded:      "Order amount exceeds the promo code maximum",
	ReasonCategoryNotApplicable: "Promo code does not apply to this category",
	ReasonCategoryExcluded:      "Promo code excludes this category",
	ReasonSpaceNotApplicable:    "Promo code does not apply to this space",
	ReasonSpaceExcluded:         "Promo code excludes this space",
	ReasonLocationNotApplicable: "Promo code does not apply to this location",
	ReasonLocationExcluded:      "Promo code excludes this location",
	ReasonDayNotApplicable:      "Promo code is not valid on this day",
	ReasonMinDurationNotMet:     "Booking is shorter than the promo code minimum",
	ReasonMaxDurationExceeded:   "Booking is longer than the promo code maximum",
	ReasonTimeSlotNotApplicable: "Promo code is not valid for this time slot",
	ReasonDailyLimitExceeded:    "Promo code daily usage limit has been reached",
	ReasonFirstBookingOnly:      "Promo code is only valid for a first booking",
	ReasonNewUsersOnly:          "Promo code is only valid for new users",
	ReasonStackingNotAllowed:    "Promo code cannot be combined with other discounts",
}

// Message текст для отображения пользователю.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Known сообщает, входит ли код в закрытый набор.
func (r Reason) Known() bool {
	_, ok := reasonMessages[r]
	return ok
}
