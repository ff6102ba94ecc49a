package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceType описывает способ тарификации ресурса.
type PriceType string

const (
	PriceTypeHourly PriceType = "hourly"
	PriceTypeDaily  PriceType = "daily"
	PriceTypeFree   PriceType = "free"
)

// PeakWindow задаёт пиковый интервал суток (HH:MM) и его множитель.
type PeakWindow struct {
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Multiplier float64 `json:"multiplier"`
}

// TimeBlock фиксированная цена за пакет часов.
type TimeBlock struct {
	DurationHours int    `json:"duration_hours"`
	Price         int64  `json:"price"`
	Title         string `json:"title"`
}

// SpecialEventPrice цена на конкретную дату (YYYY-MM-DD), перекрывает все остальные правила.
type SpecialEventPrice struct {
	Date  string `json:"date"`
	Price int64  `json:"price"`
}

// PricingConfig конфигурация цены ресурса. Все суммы в минимальных единицах валюты.
// Нулевой множитель означает "не задан" и трактуется как 1.
type PricingConfig struct {
	BasePrice          int64               `json:"base_price"`
	PriceType          PriceType           `json:"price_type"`
	PeakWindow         *PeakWindow         `json:"peak_window,omitempty"`
	OffPeakMultiplier  float64             `json:"off_peak_multiplier,omitempty"`
	WeekendMultiplier  float64             `json:"weekend_multiplier,omitempty"`
	TimeBlocks         []TimeBlock         `json:"time_blocks,omitempty"`
	SpecialEventPrices []SpecialEventPrice `json:"special_event_prices,omitempty"`
}

// EffectiveOffPeakMultiplier возвращает внепиковый множитель с учётом значения по умолчанию.
func (c PricingConfig) EffectiveOffPeakMultiplier() float64 {
	if c.OffPeakMultiplier == 0 {
		return 1
	}
	return c.OffPeakMultiplier
}

// EffectiveWeekendMultiplier возвращает множитель выходного дня с учётом значения по умолчанию.
func (c PricingConfig) EffectiveWeekendMultiplier() float64 {
	if c.WeekendMultiplier == 0 {
		return 1
	}
	return c.WeekendMultiplier
}

// HourlyRate возвращает почасовую ставку или 0, если ресурс тарифицируется иначе.
func (c PricingConfig) HourlyRate() int64 {
	if c.PriceType != PriceTypeHourly {
		return 0
	}
	return c.BasePrice
}

// PricingRuleType тип правила в альтернативном (списочном) формате конфигурации.
type PricingRuleType string

const (
	RuleBaseRate     PricingRuleType = "base_rate"
	RulePeakHours    PricingRuleType = "peak_hours"
	RuleOffPeak      PricingRuleType = "off_peak"
	RuleWeekend      PricingRuleType = "weekend"
	RuleTimeBlock    PricingRuleType = "time_block"
	RuleSpecialEvent PricingRuleType = "special_event"
)

// PricingRule одно правило списочного формата. Используемые поля зависят от Type.
type PricingRule struct {
	Type          PricingRuleType `json:"type"`
	Priority      int             `json:"priority"`
	Disabled      bool            `json:"disabled,omitempty"`
	Price         int64           `json:"price,omitempty"`
	PriceType     PriceType       `json:"price_type,omitempty"`
	Multiplier    float64         `json:"multiplier,omitempty"`
	StartTime     string          `json:"start_time,omitempty"`
	EndTime       string          `json:"end_time,omitempty"`
	DurationHours int             `json:"duration_hours,omitempty"`
	Date          string          `json:"date,omitempty"`
	Title         string          `json:"title,omitempty"`
}

// Resource бронируемый ресурс (помещение, место) со встроенной конфигурацией цены.
type Resource struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	Name       string        `json:"name" db:"name"`
	CategoryID string        `json:"category_id,omitempty" db:"category_id"`
	LocationID string        `json:"location_id,omitempty" db:"location_id"`
	Pricing    PricingConfig `json:"pricing" db:"pricing"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// CreateResourceRequest запрос на создание ресурса. Pricing и Rules взаимоисключающие.
type CreateResourceRequest struct {
	Name       string         `json:"name"`
	CategoryID string         `json:"category_id,omitempty"`
	LocationID string         `json:"location_id,omitempty"`
	Pricing    *PricingConfig `json:"pricing,omitempty"`
	Rules      []PricingRule  `json:"rules,omitempty"`
}

// UpdateResourceRequest запрос на обновление ресурса.
type UpdateResourceRequest struct {
	Name       *string        `json:"name,omitempty"`
	CategoryID *string        `json:"category_id,omitempty"`
	LocationID *string        `json:"location_id,omitempty"`
	Pricing    *PricingConfig `json:"pricing,omitempty"`
	Rules      []PricingRule  `json:"rules,omitempty"`
}

// PriceStrategy стратегия, по которой посчитана цена.
type PriceStrategy string

const (
	StrategyFree         PriceStrategy = "free"
	StrategySpecialEvent PriceStrategy = "special-event"
	StrategyTimeBlock    PriceStrategy = "time-block"
	StrategyRegular      PriceStrategy = "regular"
)

// PriceBreakdown детализация расчёта. Корректировки хранятся без округления.
type PriceBreakdown struct {
	PriceType         PriceType `json:"price_type"`
	BasePrice         int64     `json:"base_price"`
	DurationHours     float64   `json:"duration_hours"`
	MeteredPrice      float64   `json:"metered_price"`
	Multiplier        float64   `json:"multiplier"`
	PeakOverlapRatio  float64   `json:"peak_overlap_ratio,omitempty"`
	WeekendAdjustment float64   `json:"weekend_adjustment,omitempty"`
	PeakAdjustment    float64   `json:"peak_adjustment,omitempty"`
	RegularPrice      int64     `json:"regular_price,omitempty"`
	Savings           int64     `json:"savings,omitempty"`
	SpecialEventDate  string    `json:"special_event_date,omitempty"`
}

// TimeBlockMatch выбранный пакет часов.
type TimeBlockMatch struct {
	DurationHours int    `json:"duration_hours"`
	Price         int64  `json:"price"`
	Title         string `json:"title"`
	Savings       int64  `json:"savings"`
}
