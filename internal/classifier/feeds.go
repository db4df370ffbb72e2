package classifier

import (
	"slices"
	"time"
	"unicode/utf16"
)

const day = 24 * time.Hour

// IsRecentlyAdded reports whether e was published no more than windowDays
// before now. Events published after now, or with no publication time,
// are not recent.
func IsRecentlyAdded(e Event, now time.Time, windowDays int) bool {
	published := e.PublishedAt()
	if published == nil || windowDays < 0 {
		return false
	}
	age := now.Sub(*published)
	if age < 0 {
		return false
	}
	return age <= time.Duration(windowDays)*day
}

// RecentlyAdded keeps the events IsRecentlyAdded accepts, newest first.
func RecentlyAdded(events []Event, now time.Time, windowDays int) []Event {
	var out []Event
	for _, e := range events {
		if IsRecentlyAdded(e, now, windowDays) {
			out = append(out, e)
		}
	}
	return SortRecent(out)
}

// SortRecent returns a copy of events ordered by publication time, newest
// first. Events without a publication time go last in their input order.
func SortRecent(events []Event) []Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b Event) int {
		pa, pb := a.PublishedAt(), b.PublishedAt()
		switch {
		case pa == nil && pb == nil:
			return 0
		case pa == nil:
			return 1
		case pb == nil:
			return -1
		}
		return pb.Compare(*pa)
	})
	return out
}

// Set is a set of event ids.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// RankTrending returns at most topN events with a positive participation
// count, highest count first. Equal counts keep their input order.
func RankTrending(events []Event, topN int) []Event {
	if topN <= 0 {
		return nil
	}
	var ranked []Event
	for _, e := range events {
		if e.ParticipationsCount > 0 {
			ranked = append(ranked, e)
		}
	}
	slices.SortStableFunc(ranked, func(a, b Event) int {
		return b.ParticipationsCount - a.ParticipationsCount
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// Trending returns the ids of the events RankTrending selects.
func Trending(events []Event, topN int) Set {
	ranked := RankTrending(events, topN)
	set := make(Set, len(ranked))
	for _, e := range ranked {
		set[e.ID] = struct{}{}
	}
	return set
}

// DisplayGradient maps an event id onto one of paletteSize visual variants
// using its first and last UTF-16 code units.
func DisplayGradient(eventID string, paletteSize int) int {
	if paletteSize <= 0 || eventID == "" {
		return 0
	}
	units := utf16.Encode([]rune(eventID))
	return (int(units[0]) + int(units[len(units)-1])) % paletteSize
}
