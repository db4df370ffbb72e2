package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"ms-discovery/internal/backend"
	"ms-discovery/internal/classifier"
	"ms-discovery/internal/clock"
	"ms-discovery/internal/metrics"
	"ms-discovery/internal/models"
	"ms-discovery/internal/services"
	"ms-discovery/internal/sqsutil"
)

// earlyFireWindow bounds how far ahead of its boundary a schedule may fire
// and still be retried instead of recorded.
const earlyFireWindow = time.Minute

var errFiredEarly = errors.New("schedule fired before its boundary")

// Catalog is the part of the catalog the status worker reads and writes.
type Catalog interface {
	GetEvent(ctx context.Context, eventID string) (classifier.Event, error)
	UpsertEvent(ctx context.Context, e classifier.Event) error
	UpdateCachedStatus(ctx context.Context, eventID string, status classifier.Status, at time.Time) error
}

// EventFetcher loads a single event from the backend.
type EventFetcher interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

// Processor refreshes the cached status of events when their scheduled
// registration boundaries fire.
type Processor struct {
	poller  *sqsutil.Poller
	catalog Catalog
	source  EventFetcher
	clock   clock.Clock
}

// NewProcessor creates a status processor reading from queueURL. Events
// missing from the catalog are fetched from source when it is not nil.
func NewProcessor(sqsClient sqsutil.Client, queueURL string, catalog Catalog, source EventFetcher, clk clock.Clock) *Processor {
	p := &Processor{catalog: catalog, source: source, clock: clk}
	p.poller = &sqsutil.Poller{
		Client:   sqsClient,
		QueueURL: queueURL,
		Name:     "event status",
		Handle:   p.HandleMessage,
	}
	return p
}

// ProcessMessages runs the poll loop until ctx is cancelled.
func (p *Processor) ProcessMessages(ctx context.Context) error {
	return p.poller.Run(ctx)
}

// HandleMessage processes one status message body.
func (p *Processor) HandleMessage(ctx context.Context, body string) (err error) {
	defer func() { metrics.ObserveJob("status", err) }()

	var msg models.StatusMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("invalid status message: %v: %w", err, sqsutil.ErrDrop)
	}
	if msg.EventID == "" {
		return fmt.Errorf("status message without eventId: %w", sqsutil.ErrDrop)
	}

	event, err := p.loadEvent(ctx, msg.EventID)
	if err != nil {
		return err
	}

	now := p.clock.Now()
	current := classifier.Classify(event, now)
	if expected, ok := expectedStatus(msg.Action); ok && expected != current {
		if firedEarly(event, expected, current, now) {
			return fmt.Errorf("event %s %s at %s: %w", msg.EventID, msg.Action, now.Format(time.RFC3339Nano), errFiredEarly)
		}
		log.Printf("Event %s scheduled as %s but classifies as %s at %s", msg.EventID, msg.Action, current, now.Format(time.RFC3339))
	}

	if err := p.catalog.UpdateCachedStatus(ctx, msg.EventID, current, now); err != nil {
		if errors.Is(err, services.ErrEventNotFound) {
			return fmt.Errorf("event %s removed before status update: %w", msg.EventID, sqsutil.ErrDrop)
		}
		return fmt.Errorf("failed to update status of %s: %w", msg.EventID, err)
	}

	log.Printf("Event %s status set to %s", msg.EventID, current)
	return nil
}

// loadEvent reads the event from the catalog, falling back to the backend
// for events the catalog has not seen yet.
func (p *Processor) loadEvent(ctx context.Context, eventID string) (classifier.Event, error) {
	event, err := p.catalog.GetEvent(ctx, eventID)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, services.ErrEventNotFound) {
		return classifier.Event{}, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if p.source == nil {
		return classifier.Event{}, fmt.Errorf("event %s not in catalog: %w", eventID, sqsutil.ErrDrop)
	}

	raw, err := p.source.GetEvent(ctx, eventID)
	if errors.Is(err, backend.ErrEventNotFound) {
		return classifier.Event{}, fmt.Errorf("event %s not found in backend: %w", eventID, sqsutil.ErrDrop)
	}
	if err != nil {
		return classifier.Event{}, fmt.Errorf("failed to fetch event %s: %w", eventID, err)
	}
	event = raw.ToClassifier()
	if event.ID != eventID {
		return classifier.Event{}, fmt.Errorf("backend returned event %q for %s: %w", event.ID, eventID, sqsutil.ErrDrop)
	}
	if err := p.catalog.UpsertEvent(ctx, event); err != nil {
		return classifier.Event{}, fmt.Errorf("failed to store fetched event %s: %w", eventID, err)
	}
	log.Printf("Event %s fetched from backend into catalog", eventID)
	return event, nil
}

// firedEarly reports whether a schedule fired just before the boundary it
// was created for, so the status it expects has not been reached yet.
func firedEarly(e classifier.Event, expected, current classifier.Status, now time.Time) bool {
	var boundary *time.Time
	switch {
	case expected == classifier.StatusLive && current == classifier.StatusUpcoming:
		boundary = e.RegistrationStartOn
	case expected == classifier.StatusClosed && current == classifier.StatusLive:
		boundary = e.CloseOn
	}
	if boundary == nil || boundary.Before(now) {
		return false
	}
	return boundary.Sub(now) <= earlyFireWindow
}

func expectedStatus(action string) (classifier.Status, bool) {
	switch action {
	case models.StatusActionLive:
		return classifier.StatusLive, true
	case models.StatusActionClosed:
		return classifier.StatusClosed, true
	}
	return "", false
}
