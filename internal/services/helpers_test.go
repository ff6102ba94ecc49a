package services

import (
	"context"
	"sync"
	"time"

	"booking-system/internal/clock"
	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/redis"

	"github.com/google/uuid"
)

// 2024-03-04 понедельник, 2024-03-09 суббота.
var (
	monday   = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	saturday = "2024-03-09"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func newTestClock() *clock.MockClock {
	return clock.NewMockClock(monday)
}

type fakeCache struct {
	mu    sync.Mutex
	items map[string]interface{}
	gets  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]interface{})}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.items[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	*(dest.(*models.Resource)) = v.(models.Resource)
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

type fakeViews struct {
	mu       sync.Mutex
	counts   map[string]int64
	readWait time.Duration
}

func newFakeViews() *fakeViews {
	return &fakeViews{counts: make(map[string]int64)}
}

func (v *fakeViews) Incr(_ context.Context, key string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.counts[key]++
	return v.counts[key], nil
}

func (v *fakeViews) DecrBy(_ context.Context, key string, n int64) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.counts[key] -= n
	return v.counts[key], nil
}

func (v *fakeViews) Expire(context.Context, string, time.Duration) error { return nil }

func (v *fakeViews) GetInt(_ context.Context, key string) (int64, error) {
	time.Sleep(v.readWait)
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.counts[key]
	if !ok {
		return 0, redis.ErrCacheMiss
	}
	return n, nil
}

func (v *fakeViews) count(key string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counts[key]
}

// recordingEvents запоминает опубликованные события.
type recordingEvents struct {
	mu             sync.Mutex
	applied        []models.PromoAppliedData
	rejected       []models.PromoRejectedData
	statusChanges  []models.PromoStatusChangedData
	priced         []models.BookingPricedData
	pricingUpdates []uuid.UUID
}

func (e *recordingEvents) PublishPromoApplied(data models.PromoAppliedData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied = append(e.applied, data)
	return nil
}

func (e *recordingEvents) PublishPromoRejected(data models.PromoRejectedData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rejected = append(e.rejected, data)
	return nil
}

func (e *recordingEvents) PublishPromoStatusChanged(code string, oldStatus, newStatus models.PromoStatus, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusChanges = append(e.statusChanges, models.PromoStatusChangedData{Code: code, OldStatus: oldStatus, NewStatus: newStatus, Reason: reason})
	return nil
}

func (e *recordingEvents) PublishBookingPriced(data models.BookingPricedData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.priced = append(e.priced, data)
	return nil
}

func (e *recordingEvents) PublishResourcePricingUpdated(resourceID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pricingUpdates = append(e.pricingUpdates, resourceID)
	return nil
}

func intPtr(v int) *int { return &v }

func promoRequest(code string) *models.CreatePromoCodeRequest {
	return &models.CreatePromoCodeRequest{
		Code:       code,
		Title:      "Spring sale",
		Type:       models.PromoTypePercentage,
		Scope:      models.PromoScopeGlobal,
		Value:      10,
		ValidFrom:  monday.AddDate(0, -1, 0),
		ValidUntil: monday.AddDate(0, 1, 0),
	}
}
