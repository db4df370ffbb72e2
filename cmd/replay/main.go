package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"ms-discovery/internal/backend"
	"ms-discovery/internal/config"
	"ms-discovery/internal/kafka"
)

// replay publishes the backend's event listing to the events topic as
// snapshot changes, seeding every consumer of the topic.
func main() {
	topic := flag.String("topic", "", "Kafka topic (defaults to KAFKA_EVENTS_TOPIC)")
	flag.Parse()

	cfg := config.Load()
	if cfg.KafkaURL == "" {
		log.Fatal("KAFKA_URL is required")
	}
	if *topic == "" {
		*topic = cfg.EventsKafkaTopic
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := backend.NewClient(cfg, &http.Client{Timeout: 30 * time.Second})
	events, err := client.ListEvents(ctx)
	if err != nil {
		log.Fatalf("Failed to list events from backend: %v", err)
	}

	producer := kafka.NewEventProducer(cfg.KafkaURL, *topic)
	defer producer.Close()

	n, err := producer.PublishSnapshot(ctx, events, time.Now().UTC())
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
	log.Printf("Replayed %d of %d events to %s", n, len(events), *topic)
}
