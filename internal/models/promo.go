package models

import (
	"time"

	"github.com/google/uuid"
)

// PromoType описывает формулу скидки промокода.
type PromoType string

const (
	PromoTypePercentage   PromoType = "percentage"
	PromoTypeFixedAmount  PromoType = "fixed_amount"
	PromoTypeFreeHours    PromoType = "free_hours"
	PromoTypeBuyOneGetOne PromoType = "buy_one_get_one"
)

// PromoScope область действия промокода.
type PromoScope string

const (
	PromoScopeGlobal        PromoScope = "global"
	PromoScopeCategory      PromoScope = "category"
	PromoScopeSpace         PromoScope = "space"
	PromoScopeUser          PromoScope = "user"
	PromoScopeFirstTimeUser PromoScope = "first_time_user"
)

// PromoStatus кешированный статус промокода. Всегда выводим из окна действия,
// лимита использований и ручной паузы.
type PromoStatus string

const (
	PromoStatusActive    PromoStatus = "active"
	PromoStatusInactive  PromoStatus = "inactive"
	PromoStatusExpired   PromoStatus = "expired"
	PromoStatusExhausted PromoStatus = "exhausted"
	PromoStatusPaused    PromoStatus = "paused"
)

// StackingStrategy разрешение конфликтов при нескольких подходящих кодах.
// Движок поле не использует, его читает вызывающая сторона.
type StackingStrategy string

const (
	StackingBest  StackingStrategy = "best"
	StackingFirst StackingStrategy = "first"
	StackingLast  StackingStrategy = "last"
	StackingStack StackingStrategy = "stack"
)

// TimeSlot разрешённый интервал начала бронирования (HH:MM).
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Restrictions ограничения применения промокода. nil и пустые списки означают "без ограничения".
type Restrictions struct {
	MinOrderAmount       *int64     `json:"min_order_amount,omitempty"`
	MaxOrderAmount       *int64     `json:"max_order_amount,omitempty"`
	MaxDiscountAmount    *int64     `json:"max_discount_amount,omitempty"`
	MinBookingDuration   *float64   `json:"min_booking_duration,omitempty"`
	MaxBookingDuration   *float64   `json:"max_booking_duration,omitempty"`
	ApplicableCategories []string   `json:"applicable_categories,omitempty"`
	ExcludedCategories   []string   `json:"excluded_categories,omitempty"`
	ApplicableSpaces     []string   `json:"applicable_spaces,omitempty"`
	ExcludedSpaces       []string   `json:"excluded_spaces,omitempty"`
	ApplicableUsers      []string   `json:"applicable_users,omitempty"`
	ExcludedUsers        []string   `json:"excluded_users,omitempty"`
	ApplicableLocations  []string   `json:"applicable_locations,omitempty"`
	ExcludedLocations    []string   `json:"excluded_locations,omitempty"`
	AllowedDaysOfWeek    []int      `json:"allowed_days_of_week,omitempty"`
	AllowedTimeSlots     []TimeSlot `json:"allowed_time_slots,omitempty"`
	FirstBookingOnly     bool       `json:"first_booking_only,omitempty"`
	NewUsersOnly         bool       `json:"new_users_only,omitempty"`
	MaxUsesPerUser       *int       `json:"max_uses_per_user,omitempty"`
	MaxUsesPerDay        *int       `json:"max_uses_per_day,omitempty"`
	CooldownPeriodHours  *float64   `json:"cooldown_period_hours,omitempty"`
}

// StackingRules правила совмещения промокода с другими скидками.
type StackingRules struct {
	CanStackWithOtherPromos       bool             `json:"can_stack_with_other_promos"`
	CanStackWithPlatformDiscounts bool             `json:"can_stack_with_platform_discounts"`
	CanStackWithSpaceDiscounts    bool             `json:"can_stack_with_space_discounts"`
	AllowedCodes                  []string         `json:"allowed_codes,omitempty"`
	DeniedCodes                   []string         `json:"denied_codes,omitempty"`
	Strategy                      StackingStrategy `json:"strategy,omitempty"`
}

// UsageRecord запись об успешном применении. Создаётся один раз и больше не меняется.
type UsageRecord struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	UserID         string            `json:"user_id" db:"user_id"`
	BookingID      string            `json:"booking_id" db:"booking_id"`
	DiscountAmount int64             `json:"discount_amount" db:"discount_amount"`
	OriginalAmount int64             `json:"original_amount" db:"original_amount"`
	FinalAmount    int64             `json:"final_amount" db:"final_amount"`
	UsedAt         time.Time         `json:"used_at" db:"used_at"`
	IPAddress      string            `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      string            `json:"user_agent,omitempty" db:"user_agent"`
	Metadata       map[string]string `json:"metadata,omitempty" db:"metadata"`
}

// PromoAnalytics счётчики промокода. Меняются только журналом использований.
type PromoAnalytics struct {
	Views                 int64            `json:"views"`
	TotalAttempts         int64            `json:"total_attempts"`
	SuccessfulUses        int64            `json:"successful_uses"`
	FailedUses            int64            `json:"failed_uses"`
	TotalDiscountGiven    int64            `json:"total_discount_given"`
	TotalRevenueGenerated int64            `json:"total_revenue_generated"`
	AverageDiscountAmount float64          `json:"average_discount_amount"`
	ConversionRate        float64          `json:"conversion_rate"`
	FailureReasons        map[string]int64 `json:"failure_reasons,omitempty"`
}

// PromoCode промокод платформы или площадки.
type PromoCode struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	Code          string         `json:"code" db:"code"`
	Title         string         `json:"title" db:"title"`
	Description   string         `json:"description,omitempty" db:"description"`
	Type          PromoType      `json:"type" db:"type"`
	Scope         PromoScope     `json:"scope" db:"scope"`
	Value         float64        `json:"value" db:"value"`
	Status        PromoStatus    `json:"status" db:"status"`
	ValidFrom     time.Time      `json:"valid_from" db:"valid_from"`
	ValidUntil    time.Time      `json:"valid_until" db:"valid_until"`
	UsageLimit    *int           `json:"usage_limit,omitempty" db:"usage_limit"`
	CurrentUsage  int            `json:"current_usage" db:"current_usage"`
	Restrictions  Restrictions   `json:"restrictions" db:"restrictions"`
	StackingRules StackingRules  `json:"stacking_rules" db:"stacking_rules"`
	UsageHistory  []UsageRecord  `json:"usage_history,omitempty" db:"-"`
	Analytics     PromoAnalytics `json:"analytics" db:"analytics"`
	LastUsedAt    *time.Time     `json:"last_used_at,omitempty" db:"last_used_at"`
	PausedAt      *time.Time     `json:"paused_at,omitempty" db:"paused_at"`
	PauseReason   string         `json:"pause_reason,omitempty" db:"pause_reason"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
	Version       int64          `json:"version" db:"version"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// LimitReached сообщает, исчерпан ли общий лимит использований.
func (p PromoCode) LimitReached() bool {
	return p.UsageLimit != nil && p.CurrentUsage >= *p.UsageLimit
}

// CreatePromoCodeRequest запрос на создание промокода.
type CreatePromoCodeRequest struct {
	Code          string        `json:"code"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Type          PromoType     `json:"type"`
	Scope         PromoScope    `json:"scope"`
	Value         float64       `json:"value"`
	ValidFrom     time.Time     `json:"valid_from"`
	ValidUntil    time.Time     `json:"valid_until"`
	UsageLimit    *int          `json:"usage_limit,omitempty"`
	Restrictions  Restrictions  `json:"restrictions"`
	StackingRules StackingRules `json:"stacking_rules"`
}

// UpdatePromoCodeRequest запрос на обновление. Счётчики и история не редактируются.
type UpdatePromoCodeRequest struct {
	Title         *string        `json:"title,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Value         *float64       `json:"value,omitempty"`
	ValidFrom     *time.Time     `json:"valid_from,omitempty"`
	ValidUntil    *time.Time     `json:"valid_until,omitempty"`
	UsageLimit    *int           `json:"usage_limit,omitempty"`
	Restrictions  *Restrictions  `json:"restrictions,omitempty"`
	StackingRules *StackingRules `json:"stacking_rules,omitempty"`
}

// PauseRequest тело запроса ручной паузы.
type PauseRequest struct {
	Reason string `json:"reason"`
}
