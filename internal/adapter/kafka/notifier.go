package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/crs4/tdm/internal/config"
	"github.com/crs4/tdm/internal/fetch"
	kafkago "github.com/segmentio/kafka-go"
)

// EventTypeFetchCompleted is the event_type header of completion events.
const EventTypeFetchCompleted = "gfs_fetch_completed"

// Notifier publishes fetch completions to a Kafka topic.
// It implements fetch.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured notify topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaNotifyTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// NotifyFetched publishes one completion event keyed by run ID, so all
// events for a cycle land on the same partition.
func (n *Notifier) NotifyFetched(ctx context.Context, res fetch.Result) error {
	msg, err := serializeToMessage(res)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish fetch event: %w", err)
	}
	n.logger.Debug("fetch event published", "topic", n.writer.Topic, "run", res.RunID)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a fetch result into a Kafka message.
func serializeToMessage(res fetch.Result) (kafkago.Message, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fetch result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(res.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeFetchCompleted)},
			{Key: "completed_at", Value: []byte(res.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
