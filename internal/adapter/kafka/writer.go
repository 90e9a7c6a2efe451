package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/gasebb/gas-forecast-etl/internal/config"
	"github.com/gasebb/gas-forecast-etl/internal/domain"
)

// Writer produces forecast alerts to a Kafka topic.
// It implements pipeline.AlertLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the cycle's alerts to the sink topic
// in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, alerts []domain.ForecastAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeToMessage(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ForecastAlert into a Kafka message. The key
// is the model name so each model's alerts stay ordered within a partition.
func serializeToMessage(alert domain.ForecastAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.Model),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "model", Value: []byte(alert.Model)},
			{Key: "generated_at", Value: []byte(alert.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
