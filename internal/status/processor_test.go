package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-discovery/internal/backend"
	"ms-discovery/internal/classifier"
	"ms-discovery/internal/clock"
	"ms-discovery/internal/models"
	"ms-discovery/internal/services"
	"ms-discovery/internal/sqsutil"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetEvent(ctx context.Context, eventID string) (classifier.Event, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(classifier.Event), args.Error(1)
}

func (m *MockCatalog) UpsertEvent(ctx context.Context, e classifier.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	args := m.Called(ctx, eventID)
	if e := args.Get(0); e != nil {
		return e.(*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) UpdateCachedStatus(ctx context.Context, eventID string, status classifier.Status, at time.Time) error {
	args := m.Called(ctx, eventID, status, at)
	return args.Error(0)
}

var now = time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func liveEvent() classifier.Event {
	return classifier.Event{
		ID:                  "e1",
		RegistrationStartOn: ptr(now.Add(-time.Hour)),
		CloseOn:             ptr(now.Add(48 * time.Hour)),
	}
}

func TestHandleMessageUpdatesStatus(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "e1").Return(liveEvent(), nil)
	catalog.On("UpdateCachedStatus", mock.Anything, "e1", classifier.StatusLive, now).Return(nil)

	p := NewProcessor(nil, "q", catalog, nil, clock.NewFixed(now))
	require.NoError(t, p.HandleMessage(context.Background(), `{"eventId":"e1","action":"LIVE"}`))
	catalog.AssertExpectations(t)
}

func TestHandleMessageWritesComputedStatusOnMismatch(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "e1").Return(liveEvent(), nil)
	catalog.On("UpdateCachedStatus", mock.Anything, "e1", classifier.StatusLive, now).Return(nil)

	p := NewProcessor(nil, "q", catalog, nil, clock.NewFixed(now))
	require.NoError(t, p.HandleMessage(context.Background(), `{"eventId":"e1","action":"CLOSED"}`))
	catalog.AssertExpectations(t)
}

func TestHandleMessageDropsMalformed(t *testing.T) {
	catalog := new(MockCatalog)
	p := NewProcessor(nil, "q", catalog, nil, clock.NewFixed(now))

	assert.ErrorIs(t, p.HandleMessage(context.Background(), `{not json`), sqsutil.ErrDrop)
	assert.ErrorIs(t, p.HandleMessage(context.Background(), `{"action":"LIVE"}`), sqsutil.ErrDrop)
	catalog.AssertNotCalled(t, "GetEvent", mock.Anything, mock.Anything)
}

func TestHandleMessageDropsUnknownEvent(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "gone").Return(classifier.Event{}, services.ErrEventNotFound)

	p := NewProcessor(nil, "q", catalog, nil, clock.NewFixed(now))
	assert.ErrorIs(t, p.HandleMessage(context.Background(), `{"eventId":"gone","action":"LIVE"}`), sqsutil.ErrDrop)
}

func TestHandleMessageRetriesStoreFailures(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "e1").Return(classifier.Event{}, errors.New("connection reset"))

	p := NewProcessor(nil, "q", catalog, nil, clock.NewFixed(now))
	err := p.HandleMessage(context.Background(), `{"eventId":"e1","action":"LIVE"}`)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sqsutil.ErrDrop)

	catalog = new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "e1").Return(liveEvent(), nil)
	catalog.On("UpdateCachedStatus", mock.Anything, "e1", classifier.StatusLive, now).Return(errors.New("deadlock"))
	p = NewProcessor(nil, "q", catalog, nil, clock.NewFixed(now))
	err = p.HandleMessage(context.Background(), `{"eventId":"e1","action":"LIVE"}`)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sqsutil.ErrDrop)
}

func TestHandleMessageClosedAtExactBoundaryIsRetried(t *testing.T) {
	closeOn := now
	e := classifier.Event{ID: "e1", RegistrationStartOn: ptr(now.Add(-48 * time.Hour)), CloseOn: &closeOn}

	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "e1").Return(e, nil)

	p := NewProcessor(nil, "q", catalog, nil, clock.NewFixed(now))
	err := p.HandleMessage(context.Background(), `{"eventId":"e1","action":"CLOSED"}`)
	require.ErrorIs(t, err, errFiredEarly)
	assert.NotErrorIs(t, err, sqsutil.ErrDrop, "message must be redelivered")
	catalog.AssertNotCalled(t, "UpdateCachedStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	redelivered := now.Add(time.Second)
	catalog.On("UpdateCachedStatus", mock.Anything, "e1", classifier.StatusClosed, redelivered).Return(nil)
	p = NewProcessor(nil, "q", catalog, nil, clock.NewFixed(redelivered))
	require.NoError(t, p.HandleMessage(context.Background(), `{"eventId":"e1","action":"CLOSED"}`))
	catalog.AssertExpectations(t)
}

func TestHandleMessageLiveJustBeforeStartIsRetried(t *testing.T) {
	start := now.Add(500 * time.Millisecond)
	e := classifier.Event{ID: "e1", RegistrationStartOn: &start, CloseOn: ptr(now.Add(48 * time.Hour))}

	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "e1").Return(e, nil)

	p := NewProcessor(nil, "q", catalog, nil, clock.NewFixed(now))
	assert.ErrorIs(t, p.HandleMessage(context.Background(), `{"eventId":"e1","action":"LIVE"}`), errFiredEarly)
	catalog.AssertNotCalled(t, "UpdateCachedStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessageFetchesEventMissingFromCatalog(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "e7").Return(classifier.Event{}, services.ErrEventNotFound)
	catalog.On("UpsertEvent", mock.Anything, mock.MatchedBy(func(e classifier.Event) bool {
		return e.ID == "e7" && e.CloseOn != nil
	})).Return(nil)
	catalog.On("UpdateCachedStatus", mock.Anything, "e7", classifier.StatusLive, now).Return(nil)

	fetcher := new(MockFetcher)
	fetcher.On("GetEvent", mock.Anything, "e7").Return(&models.Event{
		ID:                  "e7",
		RegistrationStartOn: "2025-01-01T00:00:00Z",
		CloseOn:             "2025-01-20T00:00:00Z",
	}, nil)

	p := NewProcessor(nil, "q", catalog, fetcher, clock.NewFixed(now))
	require.NoError(t, p.HandleMessage(context.Background(), `{"eventId":"e7","action":"LIVE"}`))
	catalog.AssertExpectations(t)
	fetcher.AssertExpectations(t)
}

func TestHandleMessageFetchFailures(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, mock.Anything).Return(classifier.Event{}, services.ErrEventNotFound)

	fetcher := new(MockFetcher)
	fetcher.On("GetEvent", mock.Anything, "gone").Return(nil, backend.ErrEventNotFound)
	fetcher.On("GetEvent", mock.Anything, "flaky").Return(nil, errors.New("connection refused"))

	p := NewProcessor(nil, "q", catalog, fetcher, clock.NewFixed(now))
	assert.ErrorIs(t, p.HandleMessage(context.Background(), `{"eventId":"gone","action":"LIVE"}`), sqsutil.ErrDrop)

	err := p.HandleMessage(context.Background(), `{"eventId":"flaky","action":"LIVE"}`)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sqsutil.ErrDrop)
	catalog.AssertNotCalled(t, "UpsertEvent", mock.Anything, mock.Anything)
}
