package models

import "github.com/google/uuid"

// QuoteRequest запрос на расчёт цены бронирования.
type QuoteRequest struct {
	ResourceID              uuid.UUID `json:"resource_id"`
	UserID                  string    `json:"user_id"`
	BookingID               string    `json:"booking_id,omitempty"`
	Date                    string    `json:"date"`
	StartTime               string    `json:"start_time"`
	EndTime                 string    `json:"end_time"`
	DurationHours           *float64  `json:"duration_hours,omitempty"`
	PromoCode               string    `json:"promo_code,omitempty"`
	Quantity                int       `json:"quantity,omitempty"`
	IsFirstBooking          bool      `json:"is_first_booking,omitempty"`
	IsNewUser               bool      `json:"is_new_user,omitempty"`
	PlatformDiscountApplied bool      `json:"platform_discount_applied,omitempty"`
	SpaceDiscountApplied    bool      `json:"space_discount_applied,omitempty"`
	OtherPromoCodes         []string  `json:"other_promo_codes,omitempty"`
	IPAddress               string    `json:"-"`
	UserAgent               string    `json:"-"`
}

// PromoRejection причина, по которой промокод не применён.
type PromoRejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AppliedPromo применённый промокод.
type AppliedPromo struct {
	Code           string    `json:"code"`
	Type           PromoType `json:"type"`
	DiscountAmount int64     `json:"discount_amount"`
}

// PriceQuote итоговая цена и трассировка сработавших правил.
type PriceQuote struct {
	ResourceID         uuid.UUID       `json:"resource_id"`
	Strategy           PriceStrategy   `json:"strategy"`
	BasePrice          int64           `json:"base_price"`
	AdjustedPrice      int64           `json:"adjusted_price"`
	DiscountAmount     int64           `json:"discount_amount"`
	FinalPrice         int64           `json:"final_price"`
	Breakdown          PriceBreakdown  `json:"breakdown"`
	AppliedMultipliers []string        `json:"applied_multipliers"`
	TimeBlockMatch     *TimeBlockMatch `json:"time_block_match,omitempty"`
	PromoCodeApplied   *AppliedPromo   `json:"promo_code_applied,omitempty"`
	PromoRejection     *PromoRejection `json:"promo_rejection,omitempty"`
	PromoError         string          `json:"promo_error,omitempty"`
	ConfigWarnings     []string        `json:"config_warnings,omitempty"`
	Committed          bool            `json:"committed"`
}

// PromoValidationRequest запрос предварительной проверки промокода.
type PromoValidationRequest struct {
	UserID         string  `json:"user_id"`
	Amount         int64   `json:"amount"`
	ResourceID     string  `json:"resource_id,omitempty"`
	CategoryID     string  `json:"category_id,omitempty"`
	LocationID     string  `json:"location_id,omitempty"`
	Date           string  `json:"date,omitempty"`
	StartTime      string  `json:"start_time,omitempty"`
	DurationHours  float64 `json:"duration_hours,omitempty"`
	HourlyRate     int64   `json:"hourly_rate,omitempty"`
	Quantity       int     `json:"quantity,omitempty"`
	IsFirstBooking bool    `json:"is_first_booking,omitempty"`
	IsNewUser      bool    `json:"is_new_user,omitempty"`
}

// PromoValidationResult результат проверки без фиксации использования.
type PromoValidationResult struct {
	Code           string          `json:"code"`
	Eligible       bool            `json:"eligible"`
	Rejection      *PromoRejection `json:"rejection,omitempty"`
	DiscountAmount int64           `json:"discount_amount"`
	FinalAmount    int64           `json:"final_amount"`
}
