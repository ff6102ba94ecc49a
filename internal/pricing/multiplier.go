package pricing

import "booking-system/internal/models"

// Метки применённых множителей.
const (
	TagWeekend = "weekend"
	TagPeak    = "peak"
	TagOffPeak = "off-peak"
)

// peakThreshold доля пересечения с пиком, начиная с которой действует полный пиковый тариф.
const peakThreshold = 0.5

// RegularPrice результат обычного (метрического) расчёта. Суммы не округлены.
type RegularPrice struct {
	Metered           float64
	Price             float64
	Multiplier        float64
	OverlapRatio      float64
	WeekendAdjustment float64
	PeakAdjustment    float64
	Tags              []string
}

// Regular считает цену по базовой ставке с множителями выходного дня или пика.
func Regular(ctx RuleContext) RegularPrice {
	cfg := ctx.Pricing
	metered := float64(cfg.BasePrice)
	if cfg.PriceType == models.PriceTypeHourly {
		metered *= ctx.DurationHours
	}

	result := RegularPrice{Metered: metered, Price: metered, Multiplier: 1, Tags: []string{}}

	if weekend := cfg.EffectiveWeekendMultiplier(); ctx.IsWeekend && weekend != 1 {
		result.Price = metered * weekend
		result.Multiplier = weekend
		result.WeekendAdjustment = result.Price - metered
		result.Tags = append(result.Tags, TagWeekend)
		return result
	}

	offPeak := cfg.EffectiveOffPeakMultiplier()
	multiplier := offPeak
	if w := cfg.PeakWindow; w != nil {
		// Границы окна уже проверены Sanitize.
		peakStart, _ := ParseTimeOfDay(w.Start)
		peakEnd, _ := ParseTimeOfDay(w.End)
		if total := ctx.BookingMinutes(); total > 0 {
			result.OverlapRatio = float64(overlapMinutes(ctx.StartMinutes, ctx.EndMinutes, peakStart, peakEnd)) / float64(total)
		}
		multiplier = BlendMultiplier(result.OverlapRatio, w.Multiplier, offPeak)
	}

	result.Price = metered * multiplier
	result.Multiplier = multiplier
	result.PeakAdjustment = result.Price - metered
	switch {
	case multiplier > 1:
		result.Tags = append(result.Tags, TagPeak)
	case multiplier < 1:
		result.Tags = append(result.Tags, TagOffPeak)
	}
	return result
}

// BlendMultiplier множитель по доле пересечения с пиковым окном.
func BlendMultiplier(ratio, peak, offPeak float64) float64 {
	switch {
	case ratio <= 0:
		return offPeak
	case ratio >= peakThreshold:
		return peak
	default:
		return peak*ratio + offPeak*(1-ratio)
	}
}

func overlapMinutes(aStart, aEnd, bStart, bEnd int) int {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}
