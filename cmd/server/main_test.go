package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"booking-system/internal/clock"
	"booking-system/internal/config"
	"booking-system/internal/handlers"
	"booking-system/internal/kafka"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/repository"
	"booking-system/internal/services"

	"github.com/google/uuid"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

// newTestMux собирает маршруты поверх хранилищ в памяти, без Postgres, Redis и Kafka.
func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	log := newTestLogger()
	clk := clock.NewMockClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))

	resourceService := services.NewResourceService(repository.NewMemoryResourceRepository(), nil, nil, log, clk, 0)
	promoService := services.NewPromoService(repository.NewMemoryPromoRepository(), nil, nil, log, clk, &config.PromoConfig{MaxApplyRetries: 3})
	pricingService := services.NewPricingService(resourceService, log, 24)
	checkoutService := services.NewCheckoutService(pricingService, promoService, nil, log)
	rateCfg := &config.RateLimitConfig{Enabled: false}

	return setupRoutes(routeHandlers{
		resources: handlers.NewResourceHandler(resourceService, log),
		promos:    handlers.NewPromoHandler(promoService, log),
		checkout:  handlers.NewCheckoutHandler(checkoutService, log),
		health:    handlers.NewHealthHandler(nil, nil, nil, nil),
		rateLimit: handlers.NewRateLimitHandler(nil, log, rateCfg),
	}, log)
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestRoutes_CheckoutFlow(t *testing.T) {
	mux := newTestMux(t)

	rr := doJSON(t, mux, http.MethodPost, "/api/resources", `{"name":"Studio","pricing":{"base_price":500,"price_type":"hourly","weekend_multiplier":1.2}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create resource: %d %s", rr.Code, rr.Body.String())
	}
	var res models.Resource
	_ = json.Unmarshal(rr.Body.Bytes(), &res)

	rr = doJSON(t, mux, http.MethodPost, "/api/promo-codes", `{"code":"SPRING10","title":"Spring","type":"percentage","scope":"global","value":10,"valid_from":"2024-01-01T00:00:00Z","valid_until":"2024-12-31T00:00:00Z","usage_limit":1}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create promo: %d %s", rr.Code, rr.Body.String())
	}

	checkout := `{"resource_id":"` + res.ID.String() + `","user_id":"u1","date":"2024-03-09","start_time":"10:00","end_time":"12:00","promo_code":"spring10"}`
	rr = doJSON(t, mux, http.MethodPost, "/api/checkout", checkout)
	if rr.Code != http.StatusOK {
		t.Fatalf("checkout: %d %s", rr.Code, rr.Body.String())
	}
	var quote models.PriceQuote
	_ = json.Unmarshal(rr.Body.Bytes(), &quote)
	if quote.AdjustedPrice != 1200 || quote.FinalPrice != 1080 || !quote.Committed {
		t.Fatalf("unexpected quote: %+v", quote)
	}

	// второй раз лимит исчерпан, цена считается без скидки
	rr = doJSON(t, mux, http.MethodPost, "/api/checkout", checkout)
	quote = models.PriceQuote{}
	_ = json.Unmarshal(rr.Body.Bytes(), &quote)
	if quote.FinalPrice != 1200 || quote.PromoRejection == nil || quote.PromoRejection.Code != "EXHAUSTED" {
		t.Fatalf("expected EXHAUSTED rejection, got %+v", quote)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/promo-codes/SPRING10", "")
	var promo models.PromoCode
	_ = json.Unmarshal(rr.Body.Bytes(), &promo)
	if promo.Status != models.PromoStatusExhausted || promo.Analytics.TotalAttempts != 2 {
		t.Fatalf("unexpected promo state: %s %+v", promo.Status, promo.Analytics)
	}
}

func TestRoutes_PromoActions(t *testing.T) {
	mux := newTestMux(t)
	_ = doJSON(t, mux, http.MethodPost, "/api/promo-codes", `{"code":"PAUSE_ME","title":"P","type":"fixed_amount","scope":"global","value":100,"valid_from":"2024-01-01T00:00:00Z","valid_until":"2024-12-31T00:00:00Z"}`)

	if rr := doJSON(t, mux, http.MethodPost, "/api/promo-codes/PAUSE_ME/pause", `{"reason":"audit"}`); rr.Code != http.StatusOK {
		t.Fatalf("pause: %d %s", rr.Code, rr.Body.String())
	}
	rr := doJSON(t, mux, http.MethodPost, "/api/promo-codes/PAUSE_ME/validate", `{"user_id":"u1","amount":1000}`)
	var result models.PromoValidationResult
	_ = json.Unmarshal(rr.Body.Bytes(), &result)
	if result.Eligible || result.Rejection == nil || result.Rejection.Code != "INACTIVE" {
		t.Fatalf("expected INACTIVE while paused, got %+v", result)
	}
	if rr := doJSON(t, mux, http.MethodPost, "/api/promo-codes/PAUSE_ME/resume", ""); rr.Code != http.StatusOK {
		t.Fatalf("resume: %d %s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(t, mux, http.MethodDelete, "/api/promo-codes/PAUSE_ME", ""); rr.Code != http.StatusOK {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := doJSON(t, mux, http.MethodGet, "/api/promo-codes/PAUSE_ME", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestRoutes_HealthAndMethods(t *testing.T) {
	mux := newTestMux(t)

	if rr := doJSON(t, mux, http.MethodGet, "/health/liveness", ""); rr.Code != http.StatusOK {
		t.Fatalf("liveness: %d", rr.Code)
	}
	if rr := doJSON(t, mux, http.MethodPatch, "/api/resources", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	rr := doJSON(t, mux, http.MethodOptions, "/api/quotes", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight response: %d %v", rr.Code, rr.Header())
	}
}

type recordingInvalidator struct {
	ids []uuid.UUID
}

func (r *recordingInvalidator) InvalidateResource(_ context.Context, id uuid.UUID) error {
	r.ids = append(r.ids, id)
	return nil
}

func TestRegisterEventHandlers_InvalidatesPricingCache(t *testing.T) {
	consumer := kafka.NewTestConsumer(nil, newTestLogger())
	inv := &recordingInvalidator{}
	registerEventHandlers(consumer, inv, newTestLogger())

	id := uuid.New()
	event, err := models.NewEvent(models.EventTypeResourcePricingUpdated, "test", models.ResourcePricingUpdatedData{ResourceID: id})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}

	handler := consumer.Handler(models.EventTypeResourcePricingUpdated)
	if handler == nil {
		t.Fatalf("pricing update handler not registered")
	}
	if err := handler(context.Background(), &event); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if len(inv.ids) != 1 || inv.ids[0] != id {
		t.Fatalf("expected invalidation of %s, got %v", id, inv.ids)
	}

	if err := handler(context.Background(), &models.Event{ID: uuid.New()}); err == nil {
		t.Fatalf("expected error for event without payload")
	}

	if consumer.HandlerCount() != 1 {
		t.Fatalf("expected only the pricing update handler, got %d", consumer.HandlerCount())
	}
	if consumer.Handler(models.EventTypeBookingPriced) != nil {
		t.Fatalf("booking priced events must not be consumed")
	}
}
