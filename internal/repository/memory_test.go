package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"booking-system/internal/models"
	"booking-system/internal/promo"

	"github.com/google/uuid"
)

var testNow = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func testPromo(code string) models.PromoCode {
	return models.PromoCode{
		ID:         uuid.New(),
		Code:       code,
		Type:       models.PromoTypePercentage,
		Scope:      models.PromoScopeGlobal,
		Value:      10,
		Status:     models.PromoStatusActive,
		ValidFrom:  testNow.AddDate(0, -1, 0),
		ValidUntil: testNow.AddDate(0, 1, 0),
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
}

func TestMemoryPromoRepository_CreateGet(t *testing.T) {
	repo := NewMemoryPromoRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, testPromo("SPRING10")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, testPromo("SPRING10")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.Get(ctx, "SPRING10")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
	if _, err := repo.Get(ctx, "MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryPromoRepository_MutateIsolation(t *testing.T) {
	repo := NewMemoryPromoRepository()
	ctx := context.Background()
	_ = repo.Create(ctx, testPromo("SPRING10"))

	_, err := repo.Mutate(ctx, "SPRING10", "u1", func(p models.PromoCode) (models.PromoCode, *models.UsageRecord, error) {
		return p, nil, errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected mutate error")
	}
	got, _ := repo.Get(ctx, "SPRING10")
	if got.Version != 1 {
		t.Fatalf("failed mutation must not bump version, got %d", got.Version)
	}

	updated, err := repo.Mutate(ctx, "SPRING10", "u1", func(p models.PromoCode) (models.PromoCode, *models.UsageRecord, error) {
		return promo.RecordFailure(p, promo.ReasonExpired, testNow), nil, nil
	})
	if err != nil {
		t.Fatalf("mutate failed: %v", err)
	}
	if updated.Version != 2 || updated.Analytics.FailedUses != 1 {
		t.Fatalf("unexpected state after mutate: %+v", updated)
	}

	// вызывающая сторона не может изменить сохранённое состояние через возвращённую копию
	updated.Analytics.FailureReasons[string(promo.ReasonExpired)] = 100
	got, _ = repo.Get(ctx, "SPRING10")
	if got.Analytics.FailureReasons[string(promo.ReasonExpired)] != 1 {
		t.Fatalf("stored analytics leaked to caller")
	}
}

func TestMemoryPromoRepository_ConcurrentApplyRespectsLimit(t *testing.T) {
	repo := NewMemoryPromoRepository()
	ctx := context.Background()

	limit := 1
	p := testPromo("ONCE")
	p.UsageLimit = &limit
	_ = repo.Create(ctx, p)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejects   = map[promo.Reason]int{}
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := uuid.NewString()
			var verdict promo.Verdict
			_, err := repo.Mutate(ctx, "ONCE", userID, func(cur models.PromoCode) (models.PromoCode, *models.UsageRecord, error) {
				verdict = promo.Evaluate(cur, userID, promo.BookingDetails{Amount: 1000, Date: testNow}, testNow)
				if !verdict.Eligible {
					return promo.RecordFailure(cur, verdict.Reason, testNow), nil, nil
				}
				rec := models.UsageRecord{ID: uuid.New(), UserID: userID, OriginalAmount: 1000, DiscountAmount: 100, FinalAmount: 900, UsedAt: testNow}
				return promo.RecordSuccess(cur, rec, testNow), &rec, nil
			})
			if err != nil {
				t.Errorf("mutate failed: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if verdict.Eligible {
				successes++
			} else {
				rejects[verdict.Reason]++
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if rejects[promo.ReasonExhausted] != workers-1 {
		t.Fatalf("expected %d EXHAUSTED rejections, got %v", workers-1, rejects)
	}

	got, _ := repo.Get(ctx, "ONCE")
	if got.CurrentUsage != 1 || len(got.UsageHistory) != 1 {
		t.Fatalf("expected one recorded usage, got usage=%d history=%d", got.CurrentUsage, len(got.UsageHistory))
	}
	if got.Status != models.PromoStatusExhausted {
		t.Fatalf("expected exhausted status, got %s", got.Status)
	}
	if got.Analytics.TotalAttempts != workers {
		t.Fatalf("expected %d attempts, got %d", workers, got.Analytics.TotalAttempts)
	}
}

func TestMemoryPromoRepository_List(t *testing.T) {
	repo := NewMemoryPromoRepository()
	ctx := context.Background()
	for i, code := range []string{"AAA", "BBB", "CCC"} {
		p := testPromo(code)
		p.CreatedAt = testNow.Add(time.Duration(i) * time.Hour)
		_ = repo.Create(ctx, p)
	}

	page, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 2 || page[0].Code != "CCC" || page[1].Code != "BBB" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	page, _ = repo.List(ctx, 2, 2)
	if len(page) != 1 || page[0].Code != "AAA" {
		t.Fatalf("unexpected second page: %+v", page)
	}
	page, _ = repo.List(ctx, 2, 10)
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %d", len(page))
	}
}

func TestMemoryResourceRepository_CRUD(t *testing.T) {
	repo := NewMemoryResourceRepository()
	ctx := context.Background()

	res := models.Resource{
		ID:        uuid.New(),
		Name:      "Studio A",
		Pricing:   models.PricingConfig{BasePrice: 500, PriceType: models.PriceTypeHourly},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	res.Name = "Studio B"
	if err := repo.Update(ctx, res); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err := repo.Get(ctx, res.ID)
	if err != nil || got.Name != "Studio B" {
		t.Fatalf("unexpected get result: %+v err=%v", got, err)
	}

	if err := repo.Delete(ctx, res.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Update(ctx, res); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}
