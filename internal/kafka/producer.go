package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer messageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.Discard()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{Writer: writer, Topic: topic, Logger: log}
}

// PublishEmailJob queues the email job keyed by its id
func (p *Producer) PublishEmailJob(ctx context.Context, job models.EmailJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	msgBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = p.Writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(job.ID.String()),
			Value: msgBytes,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(job.Kind)},
			},
		},
	)
	if err != nil {
		p.Logger.LogKafka("PUBLISH_FAILED", p.Topic, err.Error())
		return fmt.Errorf("failed to publish email job %s: %w", job.ID, err)
	}
	p.Logger.LogKafka("PUBLISHED", p.Topic, fmt.Sprintf("%s %s", job.Kind, job.ID))
	return nil
}

// Dispatch queues the job for the mail worker.
func (p *Producer) Dispatch(ctx context.Context, job models.EmailJob) error {
	return p.PublishEmailJob(ctx, job)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
