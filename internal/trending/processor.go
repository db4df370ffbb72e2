package trending

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"ms-discovery/internal/classifier"
	"ms-discovery/internal/clock"
	"ms-discovery/internal/metrics"
	"ms-discovery/internal/models"
	"ms-discovery/internal/services"
	"ms-discovery/internal/sqsutil"
)

// Catalog is the part of the catalog the trending worker needs.
type Catalog interface {
	ListEvents(ctx context.Context) ([]classifier.Event, error)
	SyncFromBackend(ctx context.Context, source services.EventSource) (int, error)
}

// Cache stores the computed trending snapshot.
type Cache interface {
	Store(ctx context.Context, snapshot services.TrendingSnapshot) error
}

// Processor handles trending recalculation jobs from SQS.
type Processor struct {
	poller  *sqsutil.Poller
	catalog Catalog
	source  services.EventSource
	cache   Cache
	clock   clock.Clock
	topN    int
}

// NewProcessor creates a new trending job processor.
func NewProcessor(sqsClient sqsutil.Client, queueURL string, catalog Catalog, source services.EventSource, cache Cache, clk clock.Clock, topN int) *Processor {
	p := &Processor{
		catalog: catalog,
		source:  source,
		cache:   cache,
		clock:   clk,
		topN:    topN,
	}
	p.poller = &sqsutil.Poller{
		Client:   sqsClient,
		QueueURL: queueURL,
		Name:     "trending",
		Handle:   p.HandleMessage,
	}
	return p
}

// ProcessMessages runs the poll loop until ctx is cancelled.
func (p *Processor) ProcessMessages(ctx context.Context) error {
	return p.poller.Run(ctx)
}

// HandleMessage processes one trending job body.
func (p *Processor) HandleMessage(ctx context.Context, body string) (err error) {
	defer func() { metrics.ObserveJob("trending", err) }()

	var msg models.TrendingMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("invalid trending message: %v: %w", err, sqsutil.ErrDrop)
	}

	switch msg.Action {
	case models.TrendingActionSync:
		n, err := p.catalog.SyncFromBackend(ctx, p.source)
		if err != nil {
			return fmt.Errorf("catalog sync failed: %w", err)
		}
		log.Printf("Synced %d events from backend", n)
	case models.TrendingActionRecalculate, "":
	default:
		return fmt.Errorf("unknown trending action %q: %w", msg.Action, sqsutil.ErrDrop)
	}

	_, err = p.Recalculate(ctx)
	return err
}

// Recalculate ranks the catalog and stores the trending snapshot.
func (p *Processor) Recalculate(ctx context.Context) (services.TrendingSnapshot, error) {
	events, err := p.catalog.ListEvents(ctx)
	if err != nil {
		return services.TrendingSnapshot{}, fmt.Errorf("failed to list catalog: %w", err)
	}

	ranked := classifier.RankTrending(events, p.topN)
	snapshot := services.TrendingSnapshot{
		EventIDs:   make([]string, 0, len(ranked)),
		ComputedAt: p.clock.Now(),
	}
	for _, e := range ranked {
		snapshot.EventIDs = append(snapshot.EventIDs, e.ID)
	}

	if err := p.cache.Store(ctx, snapshot); err != nil {
		return services.TrendingSnapshot{}, fmt.Errorf("failed to store trending snapshot: %w", err)
	}
	metrics.SetTrendingSize(len(snapshot.EventIDs))
	log.Printf("Trending set recalculated: %d events", len(snapshot.EventIDs))
	return snapshot, nil
}
