package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/config"
	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes scraped forecast records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes records in a single WriteMessages call.
// Records are keyed by their composite identity so updates to the same slot
// land on the same partition.
func (w *Writer) Publish(ctx context.Context, records []domain.TimeSlotRecord) error {
	if len(records) == 0 {
		return nil
	}
	processedAt := domain.Now()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], processedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d records: %w", len(msgs), err)
	}
	w.logger.Debug("records published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a TimeSlotRecord into a Kafka message.
func serializeToMessage(r domain.TimeSlotRecord, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Key().String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "mountain", Value: []byte(r.Mountain)},
			{Key: "processed_at", Value: []byte(processedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
