package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// EmailJobHandler delivers one queued email job.
type EmailJobHandler func(ctx context.Context, job models.EmailJob) error

type Consumer struct {
	reader messageReader
	topic  string
	logger *logger.Logger
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Discard()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,    // 1B
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, topic: topic, logger: log}
}

// Start consumes email jobs until ctx is cancelled or the reader is closed. Undecodable messages and failed
// deliveries are logged and skipped; there is no redelivery.
func (c *Consumer) Start(ctx context.Context, handler EmailJobHandler) {
	c.logger.LogKafka("STARTED", c.topic, "email job consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.LogKafka("STOPPED", c.topic, "email job consumer stopped")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		var job models.EmailJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}

		c.logger.LogKafka("RECEIVED", c.topic, fmt.Sprintf("%s %s", job.Kind, job.ID))
		if err := handler(ctx, job); err != nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Email job %s failed: %v", job.ID, err))
		}
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
