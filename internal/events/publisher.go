// Package events publishes cart lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const EventTypeCartCheckedOut = "cart.checked_out"

// CartCheckedOut is emitted after an order was created from a cart selection.
type CartCheckedOut struct {
	EventID    string                    `json:"event_id"`
	UserID     int64                     `json:"user_id"`
	OrderID    int64                     `json:"order_id"`
	Items      []domain.OrderRequestItem `json:"items"`
	Total      decimal.Decimal           `json:"total"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

type Publisher interface {
	PublishCheckedOut(ctx context.Context, event CartCheckedOut) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

func NewKafkaPublisher(topic string, log *zap.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return newKafkaPublisher(w, log)
}

func newKafkaPublisher(w messageWriter, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, log: log}
}

// PublishCheckedOut writes event keyed by user id so one user's events stay
// ordered within a partition. Missing EventID and OccurredAt are filled in.
func (p *KafkaPublisher) PublishCheckedOut(ctx context.Context, event CartCheckedOut) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", EventTypeCartCheckedOut, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.UserID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeCartCheckedOut)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", EventTypeCartCheckedOut, err)
	}
	p.log.Debug("event published",
		zap.String("event_type", EventTypeCartCheckedOut),
		zap.String("event_id", event.EventID),
		zap.Int64("order_id", event.OrderID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishCheckedOut(context.Context, CartCheckedOut) error { return nil }

func (NopPublisher) Close() error { return nil }
