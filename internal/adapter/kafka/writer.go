package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/trail-data-etl/internal/config"
	"github.com/couchcryptid/trail-data-etl/internal/domain"
)

// Writer publishes trail-upserted notifications to a Kafka topic.
// It implements pipeline.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// NotifyUpserted publishes one message per written trail in a single
// WriteMessages call. Messages are keyed by source ID so updates of the same
// trail stay ordered within a partition.
func (w *Writer) NotifyUpserted(ctx context.Context, events []domain.TrailUpserted) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d trail notifications: %w", len(msgs), err)
	}
	w.logger.Debug("trail notifications published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(event domain.TrailUpserted) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize trail event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.SourceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "layer", Value: []byte(event.Layer)},
			{Key: "ingested_at", Value: []byte(event.IngestedAt.Format(time.RFC3339))},
		},
	}, nil
}
