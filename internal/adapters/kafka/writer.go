// Package kafka streams evaluations to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/internal/domain/types"
)

const writeTimeout = 5 * time.Second

// unclassifiedCategory is the category header of scores outside every bucket.
const unclassifiedCategory = "unclassified"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces evaluation messages to a Kafka topic.
type Writer struct {
	writer messageWriter
	topic  string
}

// NewWriter creates a producer for topic on brokers.
func NewWriter(brokers []string, topic string) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: writeTimeout,
	}
	return &Writer{writer: w, topic: topic}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish writes one evaluation. Messages are keyed by station so a
// station's results stay ordered within a partition.
func (w *Writer) Publish(ctx context.Context, ev model.Evaluation) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", w.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an evaluation into a Kafka message.
func serializeToMessage(ev model.Evaluation) (kafkago.Message, error) {
	data, err := json.Marshal(types.FromEvaluation(ev))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize evaluation: %w", err)
	}
	key := ev.StationID
	if key == "" {
		key = ev.ID
	}
	category := ev.Result.Category
	if !ev.Result.Classified() {
		category = unclassifiedCategory
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "profile", Value: []byte(ev.Profile)},
			{Key: "category", Value: []byte(category)},
			{Key: "evaluated_at", Value: []byte(ev.EvaluatedAt.Format(time.RFC3339))},
		},
	}, nil
}
