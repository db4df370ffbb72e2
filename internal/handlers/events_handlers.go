package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ms-discovery/internal/classifier"
	"ms-discovery/internal/clock"
	"ms-discovery/internal/config"
	"ms-discovery/internal/metrics"
	"ms-discovery/internal/models"
	"ms-discovery/internal/services"
)

// EventStore reads the event catalog.
type EventStore interface {
	ListEvents(ctx context.Context) ([]classifier.Event, error)
	GetEvent(ctx context.Context, eventID string) (classifier.Event, error)
	GetEventsByIDs(ctx context.Context, ids []string) ([]classifier.Event, error)
}

// TrendingStore reads the last computed trending snapshot.
type TrendingStore interface {
	Load(ctx context.Context) (services.TrendingSnapshot, error)
}

// EventsHandler serves the public discovery feeds.
type EventsHandler struct {
	events   EventStore
	trending TrendingStore
	clock    clock.Clock
	cfg      config.Config
}

func NewEventsHandler(events EventStore, trending TrendingStore, clk clock.Clock, cfg config.Config) *EventsHandler {
	return &EventsHandler{
		events:   events,
		trending: trending,
		clock:    clk,
		cfg:      cfg,
	}
}

// ListEvents handles GET /api/discovery/v1/events
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	windowDays, err := parseWindowDays(r, h.cfg.RecentWindowDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.clock.Now()
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		log.Printf("Error listing events: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	listed := classifier.SortForListing(filter.Apply(events, now), now)
	h.respondWithEvents(w, r.Context(), listed, events, now, windowDays)
}

// RecentEvents handles GET /api/discovery/v1/events/recent. feed=home selects
// the home page window.
func (h *EventsHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	fallback := h.cfg.RecentWindowDays
	if r.URL.Query().Get("feed") == "home" {
		fallback = h.cfg.HomeRecentWindowDays
	}
	windowDays, err := parseWindowDays(r, fallback)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.clock.Now()
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		log.Printf("Error listing events: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	recent := classifier.RecentlyAdded(events, now, windowDays)
	h.respondWithEvents(w, r.Context(), recent, events, now, windowDays)
}

// TrendingEvents handles GET /api/discovery/v1/events/trending
func (h *EventsHandler) TrendingEvents(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		log.Printf("Error listing events: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	ids := h.trendingIDs(r.Context(), events)
	byID := make(map[string]classifier.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	ranked := make([]classifier.Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ranked = append(ranked, e)
		}
	}

	views := h.views(ranked, now, h.cfg.RecentWindowDays, toSet(ids))
	writeJSON(w, http.StatusOK, models.EventListResponse{Events: views, Count: len(views), GeneratedAt: now})
}

// GetEvent handles GET /api/discovery/v1/events/{eventId}
func (h *EventsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "EventID is required")
		return
	}

	now := h.clock.Now()
	event, err := h.events.GetEvent(r.Context(), eventID)
	if errors.Is(err, services.ErrEventNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		log.Printf("Error getting event %s: %v", eventID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}

	trending, err := h.trendingSet(r.Context())
	if err != nil {
		log.Printf("Error computing trending set: %v", err)
	}
	views := h.views([]classifier.Event{event}, now, h.cfg.RecentWindowDays, trending)
	writeJSON(w, http.StatusOK, views[0])
}

// respondWithEvents writes listed as views. all is the full catalog used to
// rank trending events when no snapshot is cached.
func (h *EventsHandler) respondWithEvents(w http.ResponseWriter, ctx context.Context, listed, all []classifier.Event, now time.Time, windowDays int) {
	trending := toSet(h.trendingIDs(ctx, all))
	views := h.views(listed, now, windowDays, trending)
	writeJSON(w, http.StatusOK, models.EventListResponse{Events: views, Count: len(views), GeneratedAt: now})
}

func (h *EventsHandler) views(events []classifier.Event, now time.Time, windowDays int, trending classifier.Set) []models.EventView {
	views := models.NewEventViews(events, models.ViewOptions{
		Now:         now,
		WindowDays:  windowDays,
		Trending:    trending,
		PaletteSize: h.cfg.GradientPaletteSize,
	})
	for _, v := range views {
		metrics.ObserveStatus(v.Status)
		metrics.ObserveCachedStatus(v.CachedStatus, v.Status)
	}
	return views
}

// trendingIDs returns the cached trending ranking, or ranks events when no
// snapshot is available.
func (h *EventsHandler) trendingIDs(ctx context.Context, events []classifier.Event) []string {
	snapshot, err := h.trending.Load(ctx)
	if err == nil {
		return snapshot.EventIDs
	}
	if !errors.Is(err, services.ErrTrendingNotCached) {
		log.Printf("Error loading trending snapshot, ranking on the fly: %v", err)
	}

	ranked := classifier.RankTrending(events, h.cfg.TrendingTopN)
	ids := make([]string, 0, len(ranked))
	for _, e := range ranked {
		ids = append(ids, e.ID)
	}
	return ids
}

func (h *EventsHandler) trendingSet(ctx context.Context) (classifier.Set, error) {
	snapshot, err := h.trending.Load(ctx)
	if err == nil {
		return toSet(snapshot.EventIDs), nil
	}
	events, err := h.events.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	return classifier.Trending(events, h.cfg.TrendingTopN), nil
}

func toSet(ids []string) classifier.Set {
	set := make(classifier.Set, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func parseFilter(r *http.Request) (classifier.Filter, error) {
	query := r.URL.Query()
	filter := classifier.Filter{
		Query:          query.Get("q"),
		OrganizationID: query.Get("org"),
	}

	if raw := query.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := classifier.ParseStatus(strings.TrimSpace(part))
			if !ok {
				return filter, errors.New("status must be Upcoming, Live or Closed")
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	switch strings.ToLower(query.Get("price")) {
	case "":
	case "free":
		filter.FreeOnly = true
	case "paid":
		filter.PaidOnly = true
	default:
		return filter, errors.New("price must be free or paid")
	}
	return filter, nil
}

func parseWindowDays(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("windowDays")
	if raw == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, errors.New("windowDays must be a positive integer")
	}
	return days, nil
}
