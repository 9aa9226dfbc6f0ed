package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-eventgrid/internal/logger"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageHandler processes one message. Returned errors are logged and the
// message is committed anyway; handlers decide what is worth retrying.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
	Topic  string
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})
	return &Consumer{Reader: reader, Logger: log, Topic: topic}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	c.log().LogKafka("CONSUMER_STARTED", c.Topic, "Kafka consumer started")

	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log().LogKafka("CONSUMER_STOPPED", c.Topic, "Kafka consumer stopped")
				return nil
			}
			c.log().Error("KAFKA", fmt.Sprintf("Error reading from %s: %v", c.Topic, err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handler(ctx, msg); err != nil {
			c.log().Error("KAFKA", fmt.Sprintf("Failed to handle %s message at offset %d: %v", msg.Topic, msg.Offset, err))
		}

		if err := c.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log().Error("KAFKA", fmt.Sprintf("Failed to commit %s offset %d: %v", msg.Topic, msg.Offset, err))
		}
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.Reader.Close()
}

func (c *Consumer) log() *logger.Logger {
	if c.Logger == nil {
		c.Logger = logger.New(nil)
	}
	return c.Logger
}
