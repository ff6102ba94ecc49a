package pricing

import (
	"fmt"
	"sort"

	"booking-system/internal/models"
)

// FromRules переводит списочный формат правил в PricingConfig.
// Для однозначных полей побеждает правило с наибольшим приоритетом,
// остальные попадают в список замечаний.
func FromRules(rules []models.PricingRule) (models.PricingConfig, []ConfigIssue) {
	ordered := make([]models.PricingRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Disabled {
			ordered = append(ordered, rule)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	var (
		cfg    models.PricingConfig
		issues []ConfigIssue
		seen   = make(map[string]bool)
	)
	shadowed := func(key string, rule models.PricingRule) bool {
		if seen[key] {
			issues = append(issues, ConfigIssue{
				Field:   string(rule.Type),
				Message: fmt.Sprintf("rule with priority %d shadowed by a higher priority rule", rule.Priority),
			})
			return true
		}
		seen[key] = true
		return false
	}

	for _, rule := range ordered {
		switch rule.Type {
		case models.RuleBaseRate:
			if shadowed("base", rule) {
				continue
			}
			cfg.BasePrice = rule.Price
			cfg.PriceType = rule.PriceType
			if cfg.PriceType == "" {
				cfg.PriceType = models.PriceTypeHourly
			}
		case models.RulePeakHours:
			if shadowed("peak", rule) {
				continue
			}
			cfg.PeakWindow = &models.PeakWindow{Start: rule.StartTime, End: rule.EndTime, Multiplier: rule.Multiplier}
		case models.RuleOffPeak:
			if shadowed("off_peak", rule) {
				continue
			}
			cfg.OffPeakMultiplier = rule.Multiplier
		case models.RuleWeekend:
			if shadowed("weekend", rule) {
				continue
			}
			cfg.WeekendMultiplier = rule.Multiplier
		case models.RuleTimeBlock:
			if shadowed(fmt.Sprintf("block:%d", rule.DurationHours), rule) {
				continue
			}
			cfg.TimeBlocks = append(cfg.TimeBlocks, models.TimeBlock{
				DurationHours: rule.DurationHours,
				Price:         rule.Price,
				Title:         rule.Title,
			})
		case models.RuleSpecialEvent:
			if shadowed("event:"+rule.Date, rule) {
				continue
			}
			cfg.SpecialEventPrices = append(cfg.SpecialEventPrices, models.SpecialEventPrice{Date: rule.Date, Price: rule.Price})
		default:
			issues = append(issues, ConfigIssue{Field: "type", Message: fmt.Sprintf("unknown rule type %q", rule.Type)})
		}
	}

	if !seen["base"] {
		issues = append(issues, ConfigIssue{Field: string(models.RuleBaseRate), Message: "no base rate rule, price defaults to 0"})
		cfg.PriceType = models.PriceTypeHourly
	}

	sort.SliceStable(cfg.TimeBlocks, func(i, j int) bool {
		return cfg.TimeBlocks[i].DurationHours < cfg.TimeBlocks[j].DurationHours
	})

	return cfg, issues
}
