package pricing

import "booking-system/internal/models"

// Result итог выбора стратегии цены.
type Result struct {
	Strategy           models.PriceStrategy
	BasePrice          int64
	AdjustedPrice      int64
	Breakdown          models.PriceBreakdown
	AppliedMultipliers []string
	TimeBlockMatch     *models.TimeBlockMatch
	Issues             []ConfigIssue
}

// Resolve выбирает ровно одну стратегию. Порядок: бесплатно, цена на дату события,
// пакет часов (если дешевле обычной цены), обычный расчёт.
func Resolve(ctx RuleContext) Result {
	cfg := ctx.Pricing
	breakdown := models.PriceBreakdown{
		PriceType:     cfg.PriceType,
		BasePrice:     cfg.BasePrice,
		DurationHours: ctx.DurationHours,
		Multiplier:    1,
	}

	if cfg.PriceType == models.PriceTypeFree {
		return Result{
			Strategy:           models.StrategyFree,
			Breakdown:          breakdown,
			AppliedMultipliers: []string{},
			Issues:             ctx.Issues,
		}
	}

	regular := Regular(ctx)
	regularPrice := RoundMoney(regular.Price)
	basePrice := RoundMoney(regular.Metered)
	breakdown.MeteredPrice = regular.Metered

	bookingDate := FormatDate(ctx.Date)
	for _, event := range cfg.SpecialEventPrices {
		eventDate, err := ParseDate(event.Date)
		if err != nil || FormatDate(eventDate) != bookingDate {
			continue
		}
		breakdown.SpecialEventDate = bookingDate
		return Result{
			Strategy:           models.StrategySpecialEvent,
			BasePrice:          basePrice,
			AdjustedPrice:      event.Price,
			Breakdown:          breakdown,
			AppliedMultipliers: []string{},
			Issues:             ctx.Issues,
		}
	}

	if block, ok := SelectTimeBlock(cfg.TimeBlocks, ctx.DurationHours); ok && block.Price < regularPrice {
		savings := regularPrice - block.Price
		breakdown.RegularPrice = regularPrice
		breakdown.Savings = savings
		return Result{
			Strategy:           models.StrategyTimeBlock,
			BasePrice:          basePrice,
			AdjustedPrice:      block.Price,
			Breakdown:          breakdown,
			AppliedMultipliers: []string{},
			TimeBlockMatch: &models.TimeBlockMatch{
				DurationHours: block.DurationHours,
				Price:         block.Price,
				Title:         block.Title,
				Savings:       savings,
			},
			Issues: ctx.Issues,
		}
	}

	breakdown.Multiplier = regular.Multiplier
	breakdown.PeakOverlapRatio = regular.OverlapRatio
	breakdown.WeekendAdjustment = regular.WeekendAdjustment
	breakdown.PeakAdjustment = regular.PeakAdjustment
	breakdown.RegularPrice = regularPrice

	return Result{
		Strategy:           models.StrategyRegular,
		BasePrice:          basePrice,
		AdjustedPrice:      regularPrice,
		Breakdown:          breakdown,
		AppliedMultipliers: regular.Tags,
		Issues:             ctx.Issues,
	}
}

// SelectTimeBlock ищет пакет с точной длительностью, иначе самый короткий из покрывающих.
func SelectTimeBlock(blocks []models.TimeBlock, durationHours float64) (models.TimeBlock, bool) {
	var (
		best  models.TimeBlock
		found bool
	)
	for _, block := range blocks {
		hours := float64(block.DurationHours)
		if hours == durationHours {
			return block, true
		}
		if hours < durationHours {
			continue
		}
		if !found || block.DurationHours < best.DurationHours {
			best = block
			found = true
		}
	}
	return best, found
}

// Calculate строит контекст и сразу выбирает стратегию.
func Calculate(in ContextInput) (RuleContext, Result, error) {
	ctx, err := BuildContext(in)
	if err != nil {
		return RuleContext{}, Result{}, err
	}
	return ctx, Resolve(ctx), nil
}
