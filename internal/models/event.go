package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType тип события в Kafka.
type EventType string

const (
	EventTypePromoApplied           EventType = "promo.applied"
	EventTypePromoRejected          EventType = "promo.rejected"
	EventTypePromoStatusChanged     EventType = "promo.status_changed"
	EventTypeBookingPriced          EventType = "booking.priced"
	EventTypeResourcePricingUpdated EventType = "resource.pricing_updated"
)

// Event конверт события.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent упаковывает payload в событие.
func NewEvent(eventType EventType, source string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// DecodeData распаковывает payload события.
func (e *Event) DecodeData(dest interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.ID)
	}
	return json.Unmarshal(e.Data, dest)
}

// PromoAppliedData payload события promo.applied.
type PromoAppliedData struct {
	Code           string    `json:"code"`
	UserID         string    `json:"user_id"`
	BookingID      string    `json:"booking_id"`
	ResourceID     uuid.UUID `json:"resource_id"`
	OriginalAmount int64     `json:"original_amount"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalAmount    int64     `json:"final_amount"`
}

// PromoRejectedData payload события promo.rejected.
type PromoRejectedData struct {
	Code       string    `json:"code"`
	UserID     string    `json:"user_id"`
	ResourceID uuid.UUID `json:"resource_id"`
	Reason     string    `json:"reason"`
}

// PromoStatusChangedData payload события promo.status_changed.
type PromoStatusChangedData struct {
	Code      string      `json:"code"`
	OldStatus PromoStatus `json:"old_status"`
	NewStatus PromoStatus `json:"new_status"`
	Reason    string      `json:"reason,omitempty"`
}

// BookingPricedData payload события booking.priced.
type BookingPricedData struct {
	ResourceID    uuid.UUID     `json:"resource_id"`
	UserID        string        `json:"user_id"`
	BookingID     string        `json:"booking_id"`
	Strategy      PriceStrategy `json:"strategy"`
	AdjustedPrice int64         `json:"adjusted_price"`
	FinalPrice    int64         `json:"final_price"`
	PromoCode     string        `json:"promo_code,omitempty"`
}

// ResourcePricingUpdatedData payload события resource.pricing_updated.
type ResourcePricingUpdatedData struct {
	ResourceID uuid.UUID `json:"resource_id"`
}
