package classifier

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func window(id string, start, end *time.Time) Event {
	return Event{ID: id, Name: id, RegistrationStartOn: start, CloseOn: end}
}

func TestClassify(t *testing.T) {
	now := date(2025, time.January, 5)

	tests := []struct {
		name  string
		event Event
		want  Status
	}{
		{"start in future", window("a", ptr(now.Add(time.Hour)), ptr(now.Add(48*time.Hour))), StatusUpcoming},
		{"start in future without close", window("a", ptr(now.Add(time.Hour)), nil), StatusUpcoming},
		{"inside window", window("a", ptr(now.Add(-time.Hour)), ptr(now.Add(time.Hour))), StatusLive},
		{"window starts now", window("a", ptr(now), ptr(now.Add(time.Hour))), StatusLive},
		{"window closes now", window("a", ptr(now.Add(-time.Hour)), ptr(now)), StatusLive},
		{"close in past", window("a", ptr(now.Add(-48*time.Hour)), ptr(now.Add(-time.Hour))), StatusClosed},
		{"close in past without start", window("a", nil, ptr(now.Add(-time.Hour))), StatusClosed},
		{"no dates", window("a", nil, nil), StatusUpcoming},
		{"start in past without close", window("a", ptr(now.Add(-time.Hour)), nil), StatusUpcoming},
		{"close in future without start", window("a", nil, ptr(now.Add(time.Hour))), StatusUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.event, now))
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	now := date(2025, time.January, 5)
	e := window("a", ptr(date(2025, time.January, 1)), ptr(date(2025, time.January, 10)))

	first := Classify(e, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(e, now))
	}
}

func TestClassifyRegistrationWindowScenario(t *testing.T) {
	e := window("hackathon", ptr(date(2025, time.January, 1)), ptr(date(2025, time.January, 10)))

	assert.Equal(t, StatusLive, Classify(e, date(2025, time.January, 5)))
	assert.Equal(t, StatusUpcoming, Classify(e, date(2024, time.December, 20)))
	assert.Equal(t, StatusClosed, Classify(e, date(2025, time.February, 1)))
}

func TestClassifyUnparseableDatesFallBackToUpcoming(t *testing.T) {
	e := window("a", ParseTime("not a date"), ParseTime("32/13/2025"))
	assert.Equal(t, StatusUpcoming, Classify(e, time.Now()))
}

func TestCompareForListing(t *testing.T) {
	now := date(2025, time.January, 5)
	live := window("live", ptr(date(2025, time.January, 1)), ptr(date(2025, time.January, 10)))
	closed := window("closed", ptr(date(2024, time.December, 1)), ptr(date(2024, time.December, 10)))
	upcoming := window("upcoming", ptr(date(2025, time.March, 1)), nil)

	assert.Equal(t, -1, CompareForListing(live, closed, now))
	assert.Equal(t, 1, CompareForListing(upcoming, live, now))
	assert.Equal(t, 0, CompareForListing(closed, upcoming, now))
	assert.Equal(t, 0, CompareForListing(live, live, now))
	assert.Equal(t, CompareForListing(live, closed, now), CompareForListing(live, closed, now))
}

func TestSortForListingIsStablePartition(t *testing.T) {
	now := date(2025, time.January, 5)
	open := func(id string) Event {
		return window(id, ptr(date(2025, time.January, 1)), ptr(date(2025, time.January, 10)))
	}
	shut := func(id string) Event {
		return window(id, nil, ptr(date(2024, time.January, 1)))
	}
	later := func(id string) Event {
		return window(id, ptr(date(2026, time.January, 1)), nil)
	}

	input := []Event{shut("c1"), open("l1"), later("u1"), open("l2"), shut("c2"), open("l3"), later("u2")}
	got := SortForListing(input, now)

	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"l1", "l2", "l3", "c1", "u1", "c2", "u2"}, ids)
	assert.Equal(t, "c1", input[0].ID, "input must not be reordered")

	viaComparator := slices.Clone(input)
	slices.SortStableFunc(viaComparator, func(a, b Event) int {
		return CompareForListing(a, b, now)
	})
	assert.Equal(t, got, viaComparator)
}

func TestSortForListingEmpty(t *testing.T) {
	assert.Empty(t, SortForListing(nil, time.Now()))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"2025-01-05T10:30:00Z", ptr(time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC))},
		{"2025-01-05T10:30:00.123Z", ptr(time.Date(2025, 1, 5, 10, 30, 0, 123000000, time.UTC))},
		{"2025-01-05T10:30:00", ptr(time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC))},
		{"2025-01-05 10:30:00", ptr(time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC))},
		{"2025-01-05", ptr(date(2025, time.January, 5))},
		{"", nil},
		{"null", nil},
		{"yesterday", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseTime(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" LIVE ")
	assert.True(t, ok)
	assert.Equal(t, StatusLive, s)

	_, ok = ParseStatus("archived")
	assert.False(t, ok)
}
