package classifier

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Filter narrows a list of events. Zero-valued fields match everything.
type Filter struct {
	Query          string
	Statuses       []Status
	OrganizationID string
	FreeOnly       bool
	PaidOnly       bool
}

// Apply returns the events matching f at now, in input order.
func (f Filter) Apply(events []Event, now time.Time) []Event {
	// Caser is stateful, one per call.
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(f.Query))

	var out []Event
	for _, e := range events {
		if f.OrganizationID != "" && e.OrganizationID != f.OrganizationID {
			continue
		}
		if f.FreeOnly && !e.IsFree() {
			continue
		}
		if f.PaidOnly && e.IsFree() {
			continue
		}
		if query != "" && !strings.Contains(fold.String(e.Name), query) {
			continue
		}
		if len(f.Statuses) > 0 && !f.hasStatus(Classify(e, now)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (f Filter) hasStatus(s Status) bool {
	for _, want := range f.Statuses {
		if want == s {
			return true
		}
	}
	return false
}
