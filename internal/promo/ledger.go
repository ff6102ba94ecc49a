package promo

import (
	"errors"
	"time"

	"booking-system/internal/models"

	"github.com/google/uuid"
)

var (
	ErrAlreadyPaused = errors.New("promo code is already paused")
	ErrNotPaused     = errors.New("promo code is not paused")
	ErrDeleted       = errors.New("promo code is deleted")
)

// Функции журнала не меняют переданное значение: они возвращают новое состояние,
// которое хранилище записывает атомарно.

// Reconcile выводит статус из окна действия, лимита и паузы.
func Reconcile(p models.PromoCode, now time.Time) models.PromoCode {
	switch {
	case now.After(p.ValidUntil):
		p.Status = models.PromoStatusExpired
	case p.LimitReached():
		p.Status = models.PromoStatusExhausted
	case p.PausedAt != nil:
		p.Status = models.PromoStatusPaused
	case now.Before(p.ValidFrom):
		p.Status = models.PromoStatusInactive
	default:
		p.Status = models.PromoStatusActive
	}
	return p
}

// RecordSuccess фиксирует успешное применение.
func RecordSuccess(p models.PromoCode, rec models.UsageRecord, now time.Time) models.PromoCode {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.UsedAt.IsZero() {
		rec.UsedAt = now
	}

	history := make([]models.UsageRecord, len(p.UsageHistory), len(p.UsageHistory)+1)
	copy(history, p.UsageHistory)
	p.UsageHistory = append(history, rec)

	p.CurrentUsage++
	usedAt := rec.UsedAt
	p.LastUsedAt = &usedAt

	a := copyAnalytics(p.Analytics)
	a.SuccessfulUses++
	a.TotalAttempts++
	a.TotalDiscountGiven += rec.DiscountAmount
	a.TotalRevenueGenerated += rec.FinalAmount
	a.AverageDiscountAmount = float64(a.TotalDiscountGiven) / float64(a.SuccessfulUses)
	a.ConversionRate = conversionRate(a)
	p.Analytics = a

	p.UpdatedAt = now
	return Reconcile(p, now)
}

// RecordFailure фиксирует отказ с причиной.
func RecordFailure(p models.PromoCode, reason Reason, now time.Time) models.PromoCode {
	a := copyAnalytics(p.Analytics)
	a.FailedUses++
	a.TotalAttempts++
	if a.FailureReasons == nil {
		a.FailureReasons = make(map[string]int64)
	}
	a.FailureReasons[string(reason)]++
	a.ConversionRate = conversionRate(a)
	p.Analytics = a

	p.UpdatedAt = now
	return Reconcile(p, now)
}

// RecordView увеличивает счётчик просмотров.
func RecordView(p models.PromoCode) models.PromoCode {
	return RecordViews(p, 1)
}

// RecordViews переносит в аналитику сразу n просмотров. n <= 0 ничего не меняет.
func RecordViews(p models.PromoCode, n int64) models.PromoCode {
	if n <= 0 {
		return p
	}
	a := copyAnalytics(p.Analytics)
	a.Views += n
	p.Analytics = a
	return p
}

// Pause ставит промокод на ручную паузу.
func Pause(p models.PromoCode, reason string, now time.Time) (models.PromoCode, error) {
	if p.DeletedAt != nil {
		return p, ErrDeleted
	}
	if p.PausedAt != nil {
		return p, ErrAlreadyPaused
	}
	pausedAt := now
	p.PausedAt = &pausedAt
	p.PauseReason = reason
	p.UpdatedAt = now
	return Reconcile(p, now), nil
}

// Resume снимает паузу и заново выводит статус, а не ставит active принудительно.
func Resume(p models.PromoCode, now time.Time) (models.PromoCode, error) {
	if p.DeletedAt != nil {
		return p, ErrDeleted
	}
	if p.PausedAt == nil {
		return p, ErrNotPaused
	}
	p.PausedAt = nil
	p.PauseReason = ""
	p.UpdatedAt = now
	return Reconcile(p, now), nil
}

func conversionRate(a models.PromoAnalytics) float64 {
	if a.TotalAttempts == 0 {
		return 0
	}
	return float64(a.SuccessfulUses) / float64(a.TotalAttempts) * 100
}

func copyAnalytics(a models.PromoAnalytics) models.PromoAnalytics {
	if a.FailureReasons == nil {
		return a
	}
	reasons := make(map[string]int64, len(a.FailureReasons))
	for k, v := range a.FailureReasons {
		reasons[k] = v
	}
	a.FailureReasons = reasons
	return a
}
