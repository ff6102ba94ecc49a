package kafka

import (
	"encoding/json"
	"fmt"

	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

const eventSource = "pricing-engine"

// Producer публикует доменные события в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создаёт синхронного продюсера.
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")
	topics := cfg.Topics
	return &Producer{producer: producer, log: log, topics: &topics}, nil
}

// Close закрывает продюсера.
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

func (p *Producer) publishEvent(topic string, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.WithError(err).WithFields(map[string]interface{}{
			"topic":      topic,
			"event_type": event.Type,
		}).Error("Failed to publish event")
		return fmt.Errorf("failed to send message to %s: %w", topic, err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":      topic,
		"event_type": event.Type,
		"event_id":   event.ID,
		"partition":  partition,
		"offset":     offset,
	}).Debug("Event published")
	return nil
}

func (p *Producer) publish(topic string, eventType models.EventType, data interface{}) error {
	event, err := models.NewEvent(eventType, eventSource, data)
	if err != nil {
		return err
	}
	return p.publishEvent(topic, event)
}

// PublishPromoApplied сообщает об успешном применении промокода.
func (p *Producer) PublishPromoApplied(data models.PromoAppliedData) error {
	return p.publish(p.topics.Promotions, models.EventTypePromoApplied, data)
}

// PublishPromoRejected сообщает об отказе в применении промокода.
func (p *Producer) PublishPromoRejected(data models.PromoRejectedData) error {
	return p.publish(p.topics.Promotions, models.EventTypePromoRejected, data)
}

// PublishPromoStatusChanged сообщает о смене статуса промокода.
func (p *Producer) PublishPromoStatusChanged(code string, oldStatus, newStatus models.PromoStatus, reason string) error {
	return p.publish(p.topics.Promotions, models.EventTypePromoStatusChanged, models.PromoStatusChangedData{
		Code:      code,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Reason:    reason,
	})
}

// PublishBookingPriced сообщает о зафиксированной цене бронирования.
func (p *Producer) PublishBookingPriced(data models.BookingPricedData) error {
	return p.publish(p.topics.Bookings, models.EventTypeBookingPriced, data)
}

// PublishResourcePricingUpdated сообщает об изменении тарифа ресурса.
func (p *Producer) PublishResourcePricingUpdated(resourceID uuid.UUID) error {
	return p.publish(p.topics.Resources, models.EventTypeResourcePricingUpdated, models.ResourcePricingUpdatedData{
		ResourceID: resourceID,
	})
}
