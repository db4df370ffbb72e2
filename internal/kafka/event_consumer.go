package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ms-discovery/internal/classifier"
	"ms-discovery/internal/clock"
	"ms-discovery/internal/config"
	"ms-discovery/internal/metrics"
	"ms-discovery/internal/models"
)

// Debezium operation codes.
const (
	OpCreate   = "c"
	OpUpdate   = "u"
	OpSnapshot = "r"
	OpDelete   = "d"
)

// CatalogWriter applies event changes to the catalog.
type CatalogWriter interface {
	UpsertEvent(ctx context.Context, e classifier.Event) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// StatusScheduler keeps registration boundary schedules in step with events.
type StatusScheduler interface {
	ScheduleStatusTransitions(ctx context.Context, e classifier.Event, now time.Time) error
	DeleteStatusTransitions(ctx context.Context, eventID string) error
}

// EventConsumer mirrors the events table into the discovery catalog.
type EventConsumer struct {
	BaseConsumer
	Catalog   CatalogWriter
	Scheduler StatusScheduler
	Clock     clock.Clock
}

// NewEventConsumer creates a new consumer for event change messages. scheduler may be nil.
func NewEventConsumer(cfg config.Config, catalog CatalogWriter, scheduler StatusScheduler, clk clock.Clock) *EventConsumer {
	return &EventConsumer{
		BaseConsumer: *NewBaseConsumer(cfg.KafkaURL, cfg.EventsKafkaTopic),
		Catalog:      catalog,
		Scheduler:    scheduler,
		Clock:        clk,
	}
}

// StartConsuming consumes event changes until ctx is cancelled.
func (c *EventConsumer) StartConsuming(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("event consumer not configured")
	}
	log.Printf("Starting event consumer for topic %s", c.Topic)
	c.ConsumeMessages(ctx, c.ProcessEventChange)
	return nil
}

// ProcessEventChange applies one Debezium change envelope.
func (c *EventConsumer) ProcessEventChange(ctx context.Context, value []byte) (err error) {
	var envelope struct {
		Payload models.EventChange `json:"payload"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		metrics.ObserveCDC("invalid", err)
		return fmt.Errorf("error unmarshalling event change: %w", err)
	}

	change := envelope.Payload
	defer func() { metrics.ObserveCDC(change.Op, err) }()

	eventID := change.EventID()
	if eventID == "" {
		return fmt.Errorf("event change %q without event id", change.Op)
	}
	log.Printf("Processing event %s change for operation: %s", eventID, change.Op)

	switch change.Op {
	case OpCreate, OpUpdate, OpSnapshot:
		if change.After == nil {
			return fmt.Errorf("event change %q for %s without after image", change.Op, eventID)
		}
		event := change.After.ToClassifier()
		if err := c.Catalog.UpsertEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to upsert event %s: %w", eventID, err)
		}
		if c.Scheduler != nil {
			if err := c.Scheduler.ScheduleStatusTransitions(ctx, event, c.Clock.Now()); err != nil {
				return fmt.Errorf("failed to schedule status transitions for %s: %w", eventID, err)
			}
		}

	case OpDelete:
		if err := c.Catalog.DeleteEvent(ctx, eventID); err != nil {
			return fmt.Errorf("failed to delete event %s: %w", eventID, err)
		}
		if c.Scheduler != nil {
			if err := c.Scheduler.DeleteStatusTransitions(ctx, eventID); err != nil {
				return fmt.Errorf("failed to delete status transitions for %s: %w", eventID, err)
			}
		}

	default:
		log.Printf("Unhandled operation '%s' for event %s", change.Op, eventID)
	}

	return nil
}
