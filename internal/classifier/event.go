// Package classifier derives registration status, listing order, recency and
// trending flags for events. Every function is pure: callers supply "now".
package classifier

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the registration-window state of an event relative to a point in time.
type Status string

const (
	StatusUpcoming Status = "Upcoming"
	StatusLive     Status = "Live"
	StatusClosed   Status = "Closed"
)

// ParseStatus matches a status name case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upcoming":
		return StatusUpcoming, true
	case "live":
		return StatusLive, true
	case "closed":
		return StatusClosed, true
	}
	return "", false
}

// Event holds the fields the classifier reads. Nil times are absent.
type Event struct {
	ID                  string
	Name                string
	OrganizationID      string
	RegistrationStartOn *time.Time
	CloseOn             *time.Time
	CreatedAt           *time.Time
	PostedOn            *time.Time
	EventDate           *time.Time
	ParticipationsCount int
	Fee                 decimal.Decimal

	// CachedStatus is the status last recorded when a transition schedule
	// fired. Empty until one has.
	CachedStatus Status
}

// PublishedAt returns CreatedAt, then PostedOn, then EventDate, whichever is set first.
func (e Event) PublishedAt() *time.Time {
	switch {
	case e.CreatedAt != nil:
		return e.CreatedAt
	case e.PostedOn != nil:
		return e.PostedOn
	default:
		return e.EventDate
	}
}

// IsFree reports whether the event charges no fee.
func (e Event) IsFree() bool {
	return !e.Fee.IsPositive()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the date formats the backend emits. Empty or unparseable
// input yields nil. Values without a zone are read as UTC.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
