package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-eventgrid/internal/config"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/models"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Logger *logger.Logger
}

// NewProducer returns a producer whose messages name their own topic.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &Producer{Writer: writer, Logger: log}
}

// Publish writes value as JSON to topic, keyed so one ticket's events stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	}); err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}

	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISHED", topic, fmt.Sprintf("key=%s bytes=%d", key, len(msgBytes)))
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

const (
	EventTicketBooked    = "ticket.booked"
	EventPaymentUpdated  = "ticket.payment_updated"
	EventTicketCheckedIn = "ticket.checked_in"
)

// TicketPublisher streams ticket lifecycle events.
type TicketPublisher struct {
	Producer *Producer
	Topics   config.TopicConfig
	Now      func() time.Time
}

func NewTicketPublisher(producer *Producer, topics config.TopicConfig) *TicketPublisher {
	return &TicketPublisher{
		Producer: producer,
		Topics:   topics,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *TicketPublisher) publish(ctx context.Context, topic, eventType string, ticket models.Ticket) error {
	return p.Producer.Publish(ctx, topic, ticket.ID, models.NewTicketEvent(eventType, ticket, p.Now()))
}

func (p *TicketPublisher) TicketBooked(ctx context.Context, ticket models.Ticket) error {
	return p.publish(ctx, p.Topics.TicketBooked, EventTicketBooked, ticket)
}

func (p *TicketPublisher) PaymentUpdated(ctx context.Context, ticket models.Ticket) error {
	return p.publish(ctx, p.Topics.PaymentUpdated, EventPaymentUpdated, ticket)
}

func (p *TicketPublisher) TicketCheckedIn(ctx context.Context, ticket models.Ticket) error {
	return p.publish(ctx, p.Topics.TicketCheckedIn, EventTicketCheckedIn, ticket)
}
