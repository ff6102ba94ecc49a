package pricing

import (
	"errors"
	"fmt"
	"strings"

	"booking-system/internal/models"
)

// Допустимые диапазоны множителей.
const (
	MinMultiplier        = 0.1
	MaxPeakMultiplier    = 10.0
	MaxOffPeakMultiplier = 2.0
	MaxWeekendMultiplier = 3.0
)

// ConfigIssue нарушение инварианта конфигурации. Правило с нарушением пропускается.
type ConfigIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i ConfigIssue) String() string {
	return i.Field + ": " + i.Message
}

// ErrInvalidPricingConfig возвращается ValidateConfig при записи некорректной конфигурации.
var ErrInvalidPricingConfig = errors.New("invalid pricing config")

// ValidateConfig проверяет конфигурацию перед сохранением.
func ValidateConfig(cfg models.PricingConfig) error {
	_, issues := Sanitize(cfg)
	if len(issues) == 0 {
		return nil
	}
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidPricingConfig, strings.Join(parts, "; "))
}

// Sanitize убирает из конфигурации правила, нарушающие инварианты, и перечисляет их.
// Вход не изменяется.
func Sanitize(cfg models.PricingConfig) (models.PricingConfig, []ConfigIssue) {
	var issues []ConfigIssue
	add := func(field, format string, args ...interface{}) {
		issues = append(issues, ConfigIssue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	out := cfg
	out.TimeBlocks = nil
	out.SpecialEventPrices = nil

	switch cfg.PriceType {
	case models.PriceTypeHourly, models.PriceTypeDaily, models.PriceTypeFree:
	case "":
		out.PriceType = models.PriceTypeHourly
	default:
		add("price_type", "unknown price type %q, falling back to hourly", cfg.PriceType)
		out.PriceType = models.PriceTypeHourly
	}

	if cfg.BasePrice < 0 {
		add("base_price", "must be non-negative, got %d", cfg.BasePrice)
		out.BasePrice = 0
	}

	if w := cfg.PeakWindow; w != nil {
		start, errStart := ParseTimeOfDay(w.Start)
		end, errEnd := ParseTimeOfDay(w.End)
		switch {
		case errStart != nil || errEnd != nil:
			add("peak_window", "invalid bounds %q-%q", w.Start, w.End)
			out.PeakWindow = nil
		case start >= end:
			add("peak_window", "start %s must be before end %s", w.Start, w.End)
			out.PeakWindow = nil
		case w.Multiplier < MinMultiplier || w.Multiplier > MaxPeakMultiplier:
			add("peak_window.multiplier", "%.2f outside [%.1f, %.1f]", w.Multiplier, MinMultiplier, MaxPeakMultiplier)
			out.PeakWindow = nil
		default:
			copied := *w
			out.PeakWindow = &copied
		}
	}

	if m := cfg.OffPeakMultiplier; m != 0 && (m < MinMultiplier || m > MaxOffPeakMultiplier) {
		add("off_peak_multiplier", "%.2f outside [%.1f, %.1f]", m, MinMultiplier, MaxOffPeakMultiplier)
		out.OffPeakMultiplier = 0
	}
	if m := cfg.WeekendMultiplier; m != 0 && (m < MinMultiplier || m > MaxWeekendMultiplier) {
		add("weekend_multiplier", "%.2f outside [%.1f, %.1f]", m, MinMultiplier, MaxWeekendMultiplier)
		out.WeekendMultiplier = 0
	}

	for i, block := range cfg.TimeBlocks {
		if block.DurationHours <= 0 || block.Price < 0 {
			add(fmt.Sprintf("time_blocks[%d]", i), "duration %dh and price %d must be positive", block.DurationHours, block.Price)
			continue
		}
		out.TimeBlocks = append(out.TimeBlocks, block)
	}

	for i, event := range cfg.SpecialEventPrices {
		if _, err := ParseDate(event.Date); err != nil {
			add(fmt.Sprintf("special_event_prices[%d]", i), "invalid date %q", event.Date)
			continue
		}
		if event.Price < 0 {
			add(fmt.Sprintf("special_event_prices[%d]", i), "price must be non-negative, got %d", event.Price)
			continue
		}
		out.SpecialEventPrices = append(out.SpecialEventPrices, event)
	}

	return out, issues
}
