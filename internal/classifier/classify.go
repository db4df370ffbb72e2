package classifier

import "time"

// Classify returns the registration status of e at now.
//
// Registration is Upcoming before it starts, Live inside a complete
// [start, close] window and Closed once close has passed. Anything else,
// including a missing start with a future close, falls back to Upcoming.
func Classify(e Event, now time.Time) Status {
	start, end := e.RegistrationStartOn, e.CloseOn

	if start != nil && now.Before(*start) {
		return StatusUpcoming
	}
	if start != nil && end != nil && !now.After(*end) {
		return StatusLive
	}
	if end != nil && now.After(*end) {
		return StatusClosed
	}
	return StatusUpcoming
}

// IsLive reports whether registration for e is open at now.
func IsLive(e Event, now time.Time) bool {
	return Classify(e, now) == StatusLive
}

// CompareForListing orders Live events before everything else and treats all
// other pairs as equal, so a stable sort keeps the original order inside
// each group. now must stay fixed for the whole sort.
func CompareForListing(a, b Event, now time.Time) int {
	aLive, bLive := IsLive(a, now), IsLive(b, now)
	switch {
	case aLive && !bLive:
		return -1
	case !aLive && bLive:
		return 1
	default:
		return 0
	}
}

// SortForListing returns a copy of events with Live events first. Relative
// order within the Live and non-Live groups is preserved.
func SortForListing(events []Event, now time.Time) []Event {
	out := make([]Event, 0, len(events))
	var rest []Event
	for _, e := range events {
		if IsLive(e, now) {
			out = append(out, e)
		} else {
			rest = append(rest, e)
		}
	}
	return append(out, rest...)
}
