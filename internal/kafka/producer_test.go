package kafka

import (
	"fmt"
	"testing"

	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
)

func TestPublishEvent(t *testing.T) {
	cfg := sarama.NewConfig()
	mp := mocks.NewSyncProducer(t, cfg)
	mp.ExpectSendMessageAndSucceed()

	event := models.Event{ID: uuid.New(), Type: models.EventTypePromoApplied}
	p := &Producer{
		producer: mp,
		log:      logger.New(&config.LoggerConfig{Level: "error", Format: "json"}),
		topics:   &config.Topics{Promotions: "promotions"},
	}
	if err := p.publishEvent("promotions", event); err != nil {
		t.Fatalf("expected publish success, got %v", err)
	}

	if err := mp.Close(); err != nil {
		t.Fatalf("failed to close mock producer: %v", err)
	}
}

func TestProducer_WrapperMethods(t *testing.T) {
	cfg := sarama.NewConfig()
	mp := mocks.NewSyncProducer(t, cfg)
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(topicChecker(t, "promotions"))
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(topicChecker(t, "promotions"))
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(topicChecker(t, "promotions"))
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(topicChecker(t, "bookings"))
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(topicChecker(t, "resources"))

	p := &Producer{
		producer: mp,
		log:      logger.New(&config.LoggerConfig{Level: "error", Format: "json"}),
		topics:   &config.Topics{Promotions: "promotions", Bookings: "bookings", Resources: "resources"},
	}

	resourceID := uuid.New()
	applied := models.PromoAppliedData{Code: "SUMMER20", UserID: "u1", ResourceID: resourceID, OriginalAmount: 1000, DiscountAmount: 200, FinalAmount: 800}

	if err := p.PublishPromoApplied(applied); err != nil {
		t.Fatalf("PublishPromoApplied failed: %v", err)
	}
	if err := p.PublishPromoRejected(models.PromoRejectedData{Code: "SUMMER20", UserID: "u1", ResourceID: resourceID, Reason: "EXPIRED"}); err != nil {
		t.Fatalf("PublishPromoRejected failed: %v", err)
	}
	if err := p.PublishPromoStatusChanged("SUMMER20", models.PromoStatusActive, models.PromoStatusPaused, "fraud check"); err != nil {
		t.Fatalf("PublishPromoStatusChanged failed: %v", err)
	}
	if err := p.PublishBookingPriced(models.BookingPricedData{ResourceID: resourceID, UserID: "u1", Strategy: models.StrategyRegular, AdjustedPrice: 1000, FinalPrice: 800}); err != nil {
		t.Fatalf("PublishBookingPriced failed: %v", err)
	}
	if err := p.PublishResourcePricingUpdated(resourceID); err != nil {
		t.Fatalf("PublishResourcePricingUpdated failed: %v", err)
	}

	if err := mp.Close(); err != nil {
		t.Fatalf("failed to close mock producer: %v", err)
	}
}

func topicChecker(t *testing.T, want string) mocks.MessageChecker {
	t.Helper()
	return func(msg *sarama.ProducerMessage) error {
		if msg.Topic != want {
			return fmt.Errorf("expected topic %s, got %s", want, msg.Topic)
		}
		return nil
	}
}

func TestProducer_PublishEvent_Failure(t *testing.T) {
	cfg := sarama.NewConfig()
	mp := mocks.NewSyncProducer(t, cfg)
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := &Producer{
		producer: mp,
		log:      logger.New(&config.LoggerConfig{Level: "error", Format: "json"}),
		topics:   &config.Topics{Promotions: "promotions"},
	}

	ev := models.Event{ID: uuid.New(), Type: models.EventTypePromoApplied}
	err := p.publishEvent("promotions", ev)
	if err == nil {
		t.Fatalf("expected error on send failure")
	}
	_ = p.Close()
}

func TestNewProducer_Error(t *testing.T) {
	log := logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
	cfg := &config.KafkaConfig{Brokers: []string{"localhost:0"}}
	if _, err := NewProducer(cfg, log); err == nil {
		t.Fatalf("expected error creating producer")
	}
}

func TestProducer_CloseNil(t *testing.T) {
	var p *Producer
	if err := p.Close(); err != nil {
		t.Fatalf("expected nil error on nil producer")
	}
	p = &Producer{}
	if err := p.Close(); err != nil {
		t.Fatalf("expected nil error on empty producer, got %v", err)
	}
}
