package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-discovery/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventProducer publishes event changes in the same envelope the CDC
// connector emits. It is used to replay the backend listing into the topic.
type EventProducer struct {
	Writer MessageWriter
	Topic  string
}

func NewEventProducer(kafkaURL, topic string) *EventProducer {
	return &EventProducer{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(kafkaURL),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		Topic: topic,
	}
}

// ChangeMessage builds the Kafka message for one change, keyed by event id.
func ChangeMessage(op string, before, after *models.Event, at time.Time) (kafka.Message, error) {
	change := models.EventChange{
		Before: before,
		After:  after,
		Source: models.DebeziumSource{Connector: "replay", Table: "events", TsMs: at.UnixMilli()},
		Op:     op,
		TsMs:   at.UnixMilli(),
	}
	eventID := change.EventID()
	if eventID == "" {
		return kafka.Message{}, fmt.Errorf("event change %q without event id", op)
	}

	value, err := json.Marshal(struct {
		Payload models.EventChange `json:"payload"`
	}{Payload: change})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event change: %w", err)
	}

	return kafka.Message{Key: []byte(eventID), Value: value, Time: at}, nil
}

// PublishSnapshot writes one snapshot ("r") change per event and returns how
// many were written. Events without an id are skipped.
func (p *EventProducer) PublishSnapshot(ctx context.Context, events []models.Event, at time.Time) (int, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for i := range events {
		msg, err := ChangeMessage(OpSnapshot, nil, &events[i], at)
		if err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := p.Writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("failed to write to topic %s: %w", p.Topic, err)
	}
	return len(msgs), nil
}

// Close closes the Kafka writer
func (p *EventProducer) Close() error {
	return p.Writer.Close()
}
