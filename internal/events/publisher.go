package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventType names a booking lifecycle event
type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingCancelled EventType = "booking.cancelled"
	EventPaymentRequested EventType = "payment.requested"
)

// BookingEvent is published whenever the gateway creates or changes a booking
type BookingEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	SessionID   uuid.UUID `json:"session_id"`
	BookingID   string    `json:"booking_id"`
	BookingCode string    `json:"booking_code,omitempty"`
	TripID      string    `json:"trip_id,omitempty"`
	Seats       []string  `json:"seats,omitempty"`
	Total       float64   `json:"total"`
	Source      string    `json:"source"` // backend or fallback
	PaymentURL  string    `json:"payment_url,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewBookingEvent stamps an event with an id and time
func NewBookingEvent(eventType EventType, sessionID uuid.UUID, bookingID string) *BookingEvent {
	return &BookingEvent{
		ID:         uuid.New(),
		Type:       eventType,
		SessionID:  sessionID,
		BookingID:  bookingID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher defines the contract for publishing booking events
type Publisher interface {
	Publish(ctx context.Context, event *BookingEvent) error
	Close() error
}

// KafkaConfig contains configuration for the Kafka publisher
type KafkaConfig struct {
	Brokers   []string
	Topic     string
	RetryMax  int
	TimeoutMs int
}

// KafkaPublisher publishes booking events to Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logrus.Logger
}

// NewKafkaPublisher creates a new Kafka publisher
func NewKafkaPublisher(config KafkaConfig, logger *logrus.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	// Events of one booking stay ordered on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, config.Topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish sends one event, keyed by booking id
func (p *KafkaPublisher) Publish(ctx context.Context, event *BookingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.BookingID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(event.ID.String())},
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("source"), Value: []byte(event.Source)},
		},
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send booking event to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":      p.topic,
		"partition":  partition,
		"offset":     offset,
		"event_type": event.Type,
		"booking_id": event.BookingID,
	}).Debug("Booking event published")

	return nil
}

// Close closes the Kafka producer
func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// NoopPublisher drops events; used when no broker is configured
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(ctx context.Context, event *BookingEvent) error { return nil }

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }
