package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/clock"
	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/promo"
	"booking-system/internal/redis"
	"booking-system/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrPromoApplicationFailed конкурирующие изменения не дали записать результат за отведённые попытки.
	ErrPromoApplicationFailed = errors.New("promo application failed after retries")
	// ErrPromoOutcomeUnknown запись прервана по контексту, применился ли промокод, неизвестно.
	ErrPromoOutcomeUnknown = errors.New("promo application outcome unknown")

	errPromoDeleted = errors.New("promo code is deleted")
)

// PromoDecision итог проверки или применения промокода.
type PromoDecision struct {
	Verdict  promo.Verdict
	Discount promo.Discount
	Promo    *models.PromoCode
}

// ApplyRequest параметры применения промокода к бронированию.
type ApplyRequest struct {
	Code       string
	UserID     string
	BookingID  string
	ResourceID uuid.UUID
	Booking    promo.BookingDetails
	IPAddress  string
	UserAgent  string
}

// PromoService управляет промокодами и журналом их использования.
type PromoService struct {
	repo         repository.PromoRepository
	views        ViewCounter
	events       PromoEvents
	log          *logger.Logger
	clock        clock.Clock
	maxRetries   int
	applyTimeout time.Duration
	trackViews   bool
	viewTTL      time.Duration
}

// NewPromoService создаёт сервис промокодов. views и events могут быть nil.
func NewPromoService(repo repository.PromoRepository, views ViewCounter, events PromoEvents, log *logger.Logger, clk clock.Clock, cfg *config.PromoConfig) *PromoService {
	s := &PromoService{
		repo:       repo,
		views:      views,
		events:     events,
		log:        log,
		clock:      clk,
		maxRetries: 3,
	}
	if cfg != nil {
		if cfg.MaxApplyRetries > 0 {
			s.maxRetries = cfg.MaxApplyRetries
		}
		s.applyTimeout = time.Duration(cfg.ApplyTimeoutSeconds) * time.Second
		s.trackViews = cfg.TrackViews
		s.viewTTL = time.Duration(cfg.ViewCounterTTLHours) * time.Hour
	}
	return s
}

// CreatePromoCode создаёт промокод.
func (s *PromoService) CreatePromoCode(ctx context.Context, req *models.CreatePromoCodeRequest) (*models.PromoCode, error) {
	now := s.clock.Now()
	p := models.PromoCode{
		ID:            uuid.New(),
		Code:          promo.NormalizeCode(req.Code),
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		Scope:         req.Scope,
		Value:         req.Value,
		ValidFrom:     req.ValidFrom.UTC(),
		ValidUntil:    req.ValidUntil.UTC(),
		UsageLimit:    req.UsageLimit,
		Restrictions:  req.Restrictions,
		StackingRules: req.StackingRules,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := promo.ValidateDefinition(p); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}
	p = promo.Reconcile(p, now)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, mapRepositoryError(err, "promo code")
	}

	s.log.WithFields(map[string]interface{}{
		"promo_code": p.Code,
		"type":       p.Type,
		"status":     p.Status,
	}).Info("Promo code created")
	return &p, nil
}

// GetPromoCode возвращает промокод с актуальным статусом и ещё не перенесёнными просмотрами.
func (s *PromoService) GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	p, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	p.Analytics.Views += s.pendingViews(ctx, p.Code)
	return &p, nil
}

// ListPromoCodes возвращает страницу промокодов без удалённых.
func (s *PromoService) ListPromoCodes(ctx context.Context, limit, offset int) ([]models.PromoCode, error) {
	all, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	now := s.clock.Now()
	out := make([]models.PromoCode, 0, len(all))
	for _, p := range all {
		if p.DeletedAt != nil {
			continue
		}
		out = append(out, promo.Reconcile(p, now))
	}
	return out, nil
}

// UpdatePromoCode меняет определение промокода. Счётчики и история не редактируются.
func (s *PromoService) UpdatePromoCode(ctx context.Context, code string, req *models.UpdatePromoCodeRequest) (*models.PromoCode, error) {
	var before models.PromoStatus
	updated, err := s.repo.Mutate(ctx, promo.NormalizeCode(code), "", func(cur models.PromoCode) (models.PromoCode, *models.UsageRecord, error) {
		if cur.DeletedAt != nil {
			return cur, nil, errPromoDeleted
		}
		before = cur.Status

		next := cur
		if req.Title != nil {
			next.Title = *req.Title
		}
		if req.Description != nil {
			next.Description = *req.Description
		}
		if req.Value != nil {
			next.Value = *req.Value
		}
		if req.ValidFrom != nil {
			next.ValidFrom = req.ValidFrom.UTC()
		}
		if req.ValidUntil != nil {
			next.ValidUntil = req.ValidUntil.UTC()
		}
		if req.UsageLimit != nil {
			limit := *req.UsageLimit
			next.UsageLimit = &limit
		}
		if req.Restrictions != nil {
			next.Restrictions = *req.Restrictions
		}
		if req.StackingRules != nil {
			next.StackingRules = *req.StackingRules
		}
		if err := promo.ValidateDefinition(next); err != nil {
			return cur, nil, err
		}

		now := s.clock.Now()
		next.UpdatedAt = now
		return promo.Reconcile(next, now), nil, nil
	})
	if err != nil {
		return nil, s.mapMutateError(err)
	}

	s.notifyStatusChange(updated.Code, before, updated.Status, "definition updated")
	return &updated, nil
}

// DeletePromoCode мягко удаляет промокод: запись и история сохраняются, код больше не применяется.
func (s *PromoService) DeletePromoCode(ctx context.Context, code string) error {
	_, err := s.repo.Mutate(ctx, promo.NormalizeCode(code), "", func(cur models.PromoCode) (models.PromoCode, *models.UsageRecord, error) {
		if cur.DeletedAt != nil {
			return cur, nil, errPromoDeleted
		}
		now := s.clock.Now()
		cur.DeletedAt = &now
		cur.UpdatedAt = now
		return cur, nil, nil
	})
	if err != nil {
		return s.mapMutateError(err)
	}
	s.log.WithField("promo_code", code).Info("Promo code deleted")
	return nil
}

// PausePromoCode ставит промокод на ручную паузу.
func (s *PromoService) PausePromoCode(ctx context.Context, code, reason string) (*models.PromoCode, error) {
	var before models.PromoStatus
	updated, err := s.repo.Mutate(ctx, promo.NormalizeCode(code), "", func(cur models.PromoCode) (models.PromoCode, *models.UsageRecord, error) {
		before = cur.Status
		next, err := promo.Pause(cur, reason, s.clock.Now())
		return next, nil, err
	})
	if err != nil {
		return nil, s.mapMutateError(err)
	}
	s.notifyStatusChange(updated.Code, before, updated.Status, reason)
	return &updated, nil
}

// ResumePromoCode снимает паузу.
func (s *PromoService) ResumePromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var before models.PromoStatus
	updated, err := s.repo.Mutate(ctx, promo.NormalizeCode(code), "", func(cur models.PromoCode) (models.PromoCode, *models.UsageRecord, error) {
		before = cur.Status
		next, err := promo.Resume(cur, s.clock.Now())
		return next, nil, err
	})
	if err != nil {
		return nil, s.mapMutateError(err)
	}
	s.notifyStatusChange(updated.Code, before, updated.Status, "resumed")
	return &updated, nil
}

// ValidatePromoCode проверяет промокод по описанию бронирования без записи в журнал.
func (s *PromoService) ValidatePromoCode(ctx context.Context, code string, req *models.PromoValidationRequest) (*models.PromoValidationResult, error) {
	if req.Amount < 0 {
		return nil, apperror.Validation("amount must be non-negative", nil)
	}

	b := promo.BookingDetails{
		Amount:         req.Amount,
		CategoryID:     req.CategoryID,
		SpaceID:        req.ResourceID,
		LocationID:     req.LocationID,
		Date:           s.clock.Now(),
		DurationHours:  req.DurationHours,
		HourlyRate:     req.HourlyRate,
		Quantity:       req.Quantity,
		IsFirstBooking: req.IsFirstBooking,
		IsNewUser:      req.IsNewUser,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return nil, err
		}
		b.Date = date
	}
	if req.StartTime != "" {
		start, err := parseTimeOfDay(req.StartTime)
		if err != nil {
			return nil, err
		}
		b.StartMinutes = &start
	}

	decision, err := s.Preview(ctx, code, req.UserID, b)
	if err != nil {
		return nil, err
	}
	return validationResult(promo.NormalizeCode(code), req.Amount, decision), nil
}

// Preview проверяет промокод и считает скидку, ничего не записывая, кроме счётчика просмотров.
// Неизвестный код даёт отказ INVALID, а не ошибку.
func (s *PromoService) Preview(ctx context.Context, code, userID string, b promo.BookingDetails) (PromoDecision, error) {
	p, err := s.load(ctx, code)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return PromoDecision{Verdict: promo.Rejected(promo.ReasonInvalid)}, nil
		}
		return PromoDecision{}, err
	}
	s.trackView(ctx, p.Code)

	verdict := promo.Evaluate(p, userID, b, s.clock.Now())
	decision := PromoDecision{Verdict: verdict, Promo: &p}
	if verdict.Eligible {
		decision.Discount = promo.Calculate(p, b.Amount, b)
	} else {
		decision.Discount = promo.Discount{FinalAmount: b.Amount}
	}
	return decision, nil
}

// Apply атомарно проверяет промокод, считает скидку и записывает исход в журнал.
// При конфликте записи попытка повторяется; отказ тоже записывается.
func (s *PromoService) Apply(ctx context.Context, req ApplyRequest) (PromoDecision, error) {
	if s.applyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.applyTimeout)
		defer cancel()
	}

	code := promo.NormalizeCode(req.Code)
	log := s.log.WithFields(map[string]interface{}{
		"promo_code": code,
		"user_id":    req.UserID,
	})

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		var (
			decision PromoDecision
			before   models.PromoStatus
			taken    int64
		)
		updated, err := s.repo.Mutate(ctx, code, req.UserID, func(cur models.PromoCode) (models.PromoCode, *models.UsageRecord, error) {
			if cur.DeletedAt != nil {
				return cur, nil, errPromoDeleted
			}
			now := s.clock.Now()
			before = cur.Status
			// Накопленные просмотры забираются только под блокировкой кода.
			taken = s.takeViews(ctx, code)
			cur = promo.RecordViews(cur, taken)

			verdict := promo.Evaluate(cur, req.UserID, req.Booking, now)
			decision = PromoDecision{Verdict: verdict}
			if !verdict.Eligible {
				decision.Discount = promo.Discount{FinalAmount: req.Booking.Amount}
				return promo.RecordFailure(cur, verdict.Reason, now), nil, nil
			}

			discount := promo.Calculate(cur, req.Booking.Amount, req.Booking)
			decision.Discount = discount
			rec := models.UsageRecord{
				ID:             uuid.New(),
				UserID:         req.UserID,
				BookingID:      req.BookingID,
				DiscountAmount: discount.Amount,
				OriginalAmount: req.Booking.Amount,
				FinalAmount:    discount.FinalAmount,
				UsedAt:         now,
				IPAddress:      req.IPAddress,
				UserAgent:      req.UserAgent,
				Metadata:       map[string]string{"resource_id": req.ResourceID.String()},
			}
			return promo.RecordSuccess(cur, rec, now), &rec, nil
		})

		definite := errors.Is(err, repository.ErrConcurrentUpdate) || errors.Is(err, repository.ErrNotFound) || errors.Is(err, errPromoDeleted)
		outcomeUnknown := err != nil && !definite &&
			(ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
		if err != nil && !outcomeUnknown {
			s.returnViews(ctx, code, taken)
		}

		switch {
		case err == nil:
			decision.Promo = &updated
			s.publishOutcome(req, decision)
			s.notifyStatusChange(code, before, updated.Status, "usage recorded")
			return decision, nil
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, errPromoDeleted):
			decision := PromoDecision{
				Verdict:  promo.Rejected(promo.ReasonInvalid),
				Discount: promo.Discount{FinalAmount: req.Booking.Amount},
			}
			s.publishOutcome(req, decision)
			return decision, nil
		case errors.Is(err, repository.ErrConcurrentUpdate):
			log.WithField("attempt", attempt).Warn("Concurrent promo update, retrying")
			continue
		case outcomeUnknown:
			log.WithError(err).Error("Promo application interrupted, outcome unknown")
			return PromoDecision{}, fmt.Errorf("%w: %v", ErrPromoOutcomeUnknown, err)
		default:
			return PromoDecision{}, fmt.Errorf("failed to apply promo code %s: %w", code, err)
		}
	}

	log.WithField("attempts", s.maxRetries).Error("Promo application failed after retries")
	return PromoDecision{}, ErrPromoApplicationFailed
}

func (s *PromoService) load(ctx context.Context, code string) (models.PromoCode, error) {
	p, err := s.repo.Get(ctx, promo.NormalizeCode(code))
	if err != nil {
		return models.PromoCode{}, mapRepositoryError(err, "promo code")
	}
	if p.DeletedAt != nil {
		return models.PromoCode{}, apperror.NotFound("promo code not found", nil)
	}
	return promo.Reconcile(p, s.clock.Now()), nil
}

func (s *PromoService) mapMutateError(err error) error {
	switch {
	case errors.Is(err, errPromoDeleted), errors.Is(err, promo.ErrDeleted):
		return apperror.NotFound("promo code not found", err)
	case errors.Is(err, promo.ErrInvalidDefinition):
		return apperror.Validation(err.Error(), err)
	case errors.Is(err, promo.ErrAlreadyPaused), errors.Is(err, promo.ErrNotPaused):
		return apperror.Conflict(err.Error(), err)
	}
	return mapRepositoryError(err, "promo code")
}

func (s *PromoService) trackView(ctx context.Context, code string) {
	if !s.trackViews || s.views == nil {
		return
	}
	key := redis.GenerateKey(redis.KeyPrefixPromoViews, code)
	count, err := s.views.Incr(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("promo_code", code).Warn("Failed to count promo view")
		return
	}
	if count == 1 && s.viewTTL > 0 {
		if err := s.views.Expire(ctx, key, s.viewTTL); err != nil {
			s.log.WithError(err).WithField("promo_code", code).Warn("Failed to set promo view ttl")
		}
	}
}

func (s *PromoService) pendingViews(ctx context.Context, code string) int64 {
	if !s.trackViews || s.views == nil {
		return 0
	}
	count, err := s.views.GetInt(ctx, redis.GenerateKey(redis.KeyPrefixPromoViews, code))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithError(err).WithField("promo_code", code).Warn("Failed to read promo views")
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return count
}

// takeViews списывает накопленные просмотры из Redis. Вызывается только внутри Mutate.
func (s *PromoService) takeViews(ctx context.Context, code string) int64 {
	n := s.pendingViews(ctx, code)
	if n == 0 {
		return 0
	}
	if _, err := s.views.DecrBy(ctx, redis.GenerateKey(redis.KeyPrefixPromoViews, code), n); err != nil {
		s.log.WithError(err).WithField("promo_code", code).Warn("Failed to flush promo views")
		return 0
	}
	return n
}

// returnViews возвращает списанные просмотры, если запись промокода не состоялась.
func (s *PromoService) returnViews(ctx context.Context, code string, n int64) {
	if n <= 0 || s.views == nil {
		return
	}
	if _, err := s.views.DecrBy(context.WithoutCancel(ctx), redis.GenerateKey(redis.KeyPrefixPromoViews, code), -n); err != nil {
		s.log.WithError(err).WithField("promo_code", code).Warn("Failed to return promo views")
	}
}

func (s *PromoService) publishOutcome(req ApplyRequest, d PromoDecision) {
	if s.events == nil {
		return
	}
	code := promo.NormalizeCode(req.Code)
	var err error
	if d.Verdict.Eligible {
		err = s.events.PublishPromoApplied(models.PromoAppliedData{
			Code:           code,
			UserID:         req.UserID,
			BookingID:      req.BookingID,
			ResourceID:     req.ResourceID,
			OriginalAmount: req.Booking.Amount,
			DiscountAmount: d.Discount.Amount,
			FinalAmount:    d.Discount.FinalAmount,
		})
	} else {
		err = s.events.PublishPromoRejected(models.PromoRejectedData{
			Code:       code,
			UserID:     req.UserID,
			ResourceID: req.ResourceID,
			Reason:     string(d.Verdict.Reason),
		})
	}
	if err != nil {
		s.log.WithError(err).WithField("promo_code", code).Warn("Failed to publish promo outcome")
	}
}

func (s *PromoService) notifyStatusChange(code string, before, after models.PromoStatus, reason string) {
	if before == after || s.events == nil {
		return
	}
	if err := s.events.PublishPromoStatusChanged(code, before, after, reason); err != nil {
		s.log.WithError(err).WithField("promo_code", code).Warn("Failed to publish promo status change")
	}
}

func validationResult(code string, amount int64, d PromoDecision) *models.PromoValidationResult {
	result := &models.PromoValidationResult{
		Code:           code,
		Eligible:       d.Verdict.Eligible,
		DiscountAmount: d.Discount.Amount,
		FinalAmount:    d.Discount.FinalAmount,
	}
	if !d.Verdict.Eligible {
		result.Rejection = rejectionOf(d.Verdict)
		result.DiscountAmount = 0
		result.FinalAmount = amount
	}
	return result
}

func rejectionOf(v promo.Verdict) *models.PromoRejection {
	return &models.PromoRejection{Code: string(v.Reason), Message: v.Reason.Message()}
}
