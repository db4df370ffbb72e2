package models

import (
	"time"

	"github.com/shopspring/decimal"

	"ms-discovery/internal/classifier"
)

// EventView is an event with its derived display fields.
type EventView struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	OrganizationID      string            `json:"organizationId,omitempty"`
	RegistrationStartOn *time.Time        `json:"registrationStartOn,omitempty"`
	CloseOn             *time.Time        `json:"closeOn,omitempty"`
	PublishedAt         *time.Time        `json:"publishedAt,omitempty"`
	ParticipationsCount int               `json:"participationsCount"`
	Fee                 decimal.Decimal   `json:"fee"`
	Free                bool              `json:"free"`
	Status              classifier.Status `json:"status"`
	CachedStatus        classifier.Status `json:"cachedStatus,omitempty"`
	RecentlyAdded       bool              `json:"recentlyAdded"`
	Trending            bool              `json:"trending"`
	Gradient            int               `json:"gradient"`
}

// ViewOptions fixes the parameters shared by every view in one response.
type ViewOptions struct {
	Now         time.Time
	WindowDays  int
	Trending    classifier.Set
	PaletteSize int
}

// NewEventView derives the display fields of e.
func NewEventView(e classifier.Event, opts ViewOptions) EventView {
	return EventView{
		ID:                  e.ID,
		Name:                e.Name,
		OrganizationID:      e.OrganizationID,
		RegistrationStartOn: e.RegistrationStartOn,
		CloseOn:             e.CloseOn,
		PublishedAt:         e.PublishedAt(),
		ParticipationsCount: e.ParticipationsCount,
		Fee:                 e.Fee,
		Free:                e.IsFree(),
		Status:              classifier.Classify(e, opts.Now),
		CachedStatus:        e.CachedStatus,
		RecentlyAdded:       classifier.IsRecentlyAdded(e, opts.Now, opts.WindowDays),
		Trending:            opts.Trending.Has(e.ID),
		Gradient:            classifier.DisplayGradient(e.ID, opts.PaletteSize),
	}
}

// NewEventViews maps events to views, keeping their order.
func NewEventViews(events []classifier.Event, opts ViewOptions) []EventView {
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, NewEventView(e, opts))
	}
	return views
}

// EventListResponse wraps a list of event views.
type EventListResponse struct {
	Events      []EventView `json:"events"`
	Count       int         `json:"count"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
