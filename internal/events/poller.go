// Package events publishes outbox rows to Kafka.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/config"
	"github.com/safar/cartstore/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

type OutboxPoller struct {
	outbox    Outbox
	writer    MessageWriter
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewOutboxPoller(outbox Outbox, writer MessageWriter, cfg config.KafkaConfig, logger *zap.Logger) *OutboxPoller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxPoller{
		outbox:    outbox,
		writer:    writer,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.Named("outbox"),
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error("outbox batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// ProcessOnce publishes one batch in creation order. Publishing stops at
// the first failure so later events are not delivered ahead of it.
func (p *OutboxPoller) ProcessOnce(ctx context.Context) error {
	return p.outbox.Process(ctx, p.batchSize, func(ctx context.Context, events []models.OutboxEvent) []uuid.UUID {
		published := make([]uuid.UUID, 0, len(events))
		for _, event := range events {
			if err := p.writer.WriteMessages(ctx, message(event)); err != nil {
				p.logger.Warn("publish failed",
					zap.String("event_id", event.ID.String()),
					zap.String("event_type", event.EventType),
					zap.Error(err))
				break
			}
			published = append(published, event.ID)
		}
		if len(published) > 0 {
			p.logger.Debug("published events", zap.Int("count", len(published)))
		}
		return published
	})
}

func message(event models.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(event.AggregateID.String()),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
		Time: event.CreatedAt,
	}
}
