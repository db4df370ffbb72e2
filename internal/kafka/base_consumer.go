package kafka

import (
	"context"
	"log"

	"github.com/segmentio/kafka-go"
)

const consumerGroupID = "discovery-service-group"

// MessageReader is the subset of *kafka.Reader the consumers use.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// BaseConsumer provides common functionality for all Kafka consumers
type BaseConsumer struct {
	Reader MessageReader
	Topic  string
}

// NewBaseConsumer creates a new base consumer for topic. The reader is nil when
// the broker or topic is not configured.
func NewBaseConsumer(kafkaURL, topic string) *BaseConsumer {
	if topic == "" || kafkaURL == "" {
		log.Println("Empty Kafka topic or URL provided, skipping consumer creation")
		return &BaseConsumer{Topic: topic}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{kafkaURL},
		Topic:   topic,
		GroupID: consumerGroupID,
	})

	return &BaseConsumer{
		Reader: reader,
		Topic:  topic,
	}
}

// Enabled reports whether the consumer has a reader.
func (c *BaseConsumer) Enabled() bool {
	return c.Reader != nil
}

// Close closes the Kafka reader
func (c *BaseConsumer) Close() error {
	if c.Reader == nil {
		return nil
	}
	return c.Reader.Close()
}

// ConsumeMessages reads messages until ctx is cancelled and passes each value
// to handler. Handler errors are logged and the message is committed anyway.
func (c *BaseConsumer) ConsumeMessages(ctx context.Context, handler func(context.Context, []byte) error) {
	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("Context cancelled, stopping consumer for topic %s", c.Topic)
				return
			}
			log.Printf("Error reading from Kafka: %v", err)
			continue
		}

		if len(msg.Value) == 0 {
			continue
		}

		if err := handler(ctx, msg.Value); err != nil {
			log.Printf("Error processing message from topic %s at offset %d: %v", msg.Topic, msg.Offset, err)
		}
	}
}
