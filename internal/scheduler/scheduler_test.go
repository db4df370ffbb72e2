package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/scheduler/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-discovery/internal/classifier"
	"ms-discovery/internal/config"
	"ms-discovery/internal/models"
)

type fakeScheduler struct {
	created   []*scheduler.CreateScheduleInput
	updated   []*scheduler.UpdateScheduleInput
	deleted   []string
	createErr error
	updateErr error
	deleteErr error
}

func (f *fakeScheduler) CreateSchedule(ctx context.Context, in *scheduler.CreateScheduleInput, _ ...func(*scheduler.Options)) (*scheduler.CreateScheduleOutput, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &scheduler.CreateScheduleOutput{}, nil
}

func (f *fakeScheduler) UpdateSchedule(ctx context.Context, in *scheduler.UpdateScheduleInput, _ ...func(*scheduler.Options)) (*scheduler.UpdateScheduleOutput, error) {
	f.updated = append(f.updated, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &scheduler.UpdateScheduleOutput{}, nil
}

func (f *fakeScheduler) DeleteSchedule(ctx context.Context, in *scheduler.DeleteScheduleInput, _ ...func(*scheduler.Options)) (*scheduler.DeleteScheduleOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Name))
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &scheduler.DeleteScheduleOutput{}, nil
}

func newService(client Client) *Service {
	return NewService(config.Config{
		SQSStatusQueueARN:  "arn:aws:sqs:ap-south-1:000000000000:event-status",
		SchedulerRoleARN:   "arn:aws:iam::000000000000:role/scheduler",
		SchedulerGroupName: "discovery",
	}, client)
}

func ptr(t time.Time) *time.Time { return &t }

func TestScheduleStatusTransitionsFutureBoundaries(t *testing.T) {
	client := &fakeScheduler{}
	svc := newService(client)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	err := svc.ScheduleStatusTransitions(context.Background(), classifier.Event{
		ID:                  "e1",
		RegistrationStartOn: ptr(time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)),
		CloseOn:             ptr(time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)),
	}, now)
	require.NoError(t, err)
	require.Len(t, client.created, 2)

	live := client.created[0]
	assert.Equal(t, "event-live-e1", aws.ToString(live.Name))
	assert.Equal(t, "discovery", aws.ToString(live.GroupName))
	assert.Equal(t, "at(2025-01-02T09:30:00)", aws.ToString(live.ScheduleExpression))
	assert.Equal(t, types.ActionAfterCompletionDelete, live.ActionAfterCompletion)
	assert.Equal(t, "arn:aws:sqs:ap-south-1:000000000000:event-status", aws.ToString(live.Target.Arn))

	var msg models.StatusMessage
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(live.Target.Input)), &msg))
	assert.Equal(t, models.StatusMessage{EventID: "e1", Action: models.StatusActionLive}, msg)

	assert.Equal(t, "event-closed-e1", aws.ToString(client.created[1].Name))
	assert.Equal(t, "at(2025-01-10T18:00:01)", aws.ToString(client.created[1].ScheduleExpression))
}

func TestScheduleStatusTransitionsFireAfterBoundaries(t *testing.T) {
	client := &fakeScheduler{}
	svc := newService(client)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 1, 2, 9, 30, 0, 250_000_000, time.UTC)
	closeOn := time.Date(2025, 1, 10, 18, 0, 0, 500_000_000, time.UTC)

	require.NoError(t, svc.ScheduleStatusTransitions(context.Background(), classifier.Event{
		ID: "e1", RegistrationStartOn: &start, CloseOn: &closeOn,
	}, now))
	require.Len(t, client.created, 2)
	assert.Equal(t, "at(2025-01-02T09:30:01)", aws.ToString(client.created[0].ScheduleExpression))
	assert.Equal(t, "at(2025-01-10T18:00:02)", aws.ToString(client.created[1].ScheduleExpression))

	e := classifier.Event{ID: "e1", RegistrationStartOn: &start, CloseOn: &closeOn}
	assert.Equal(t, classifier.StatusLive, classifier.Classify(e, LiveAt(start)))
	assert.Equal(t, classifier.StatusClosed, classifier.Classify(e, ClosedAt(closeOn)))
	assert.Equal(t, classifier.StatusLive, classifier.Classify(e, ClosedAt(closeOn).Add(-time.Second)))
}

func TestFireTimesOnWholeSeconds(t *testing.T) {
	at := time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, at, LiveAt(at))
	assert.Equal(t, at.Add(time.Second), ClosedAt(at))
}

func TestScheduleStatusTransitionsSkipsPastAndAbsent(t *testing.T) {
	client := &fakeScheduler{}
	svc := newService(client)
	now := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	err := svc.ScheduleStatusTransitions(context.Background(), classifier.Event{
		ID:                  "e1",
		RegistrationStartOn: ptr(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)),
		CloseOn:             ptr(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)),
	}, now)
	require.NoError(t, err)
	require.Len(t, client.created, 1)
	assert.Equal(t, "event-closed-e1", aws.ToString(client.created[0].Name))

	client.created = nil
	require.NoError(t, svc.ScheduleStatusTransitions(context.Background(), classifier.Event{ID: "e2"}, now))
	assert.Empty(t, client.created)
}

func TestCreateOrUpdateScheduleConflictUpdates(t *testing.T) {
	client := &fakeScheduler{createErr: &types.ConflictException{Message: aws.String("exists")}}
	svc := newService(client)

	err := svc.CreateOrUpdateSchedule(context.Background(), "e1", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), LivePrefix, models.StatusActionLive)
	require.NoError(t, err)
	require.Len(t, client.updated, 1)
	assert.Equal(t, "event-live-e1", aws.ToString(client.updated[0].Name))
	assert.Equal(t, "at(2025-02-01T00:00:00)", aws.ToString(client.updated[0].ScheduleExpression))
}

func TestCreateOrUpdateScheduleErrors(t *testing.T) {
	client := &fakeScheduler{createErr: errors.New("throttled")}
	svc := newService(client)
	err := svc.CreateOrUpdateSchedule(context.Background(), "e1", time.Now().Add(time.Hour), LivePrefix, models.StatusActionLive)
	assert.Error(t, err)
	assert.Empty(t, client.updated)

	client = &fakeScheduler{
		createErr: &types.ConflictException{Message: aws.String("exists")},
		updateErr: errors.New("denied"),
	}
	svc = newService(client)
	err = svc.CreateOrUpdateSchedule(context.Background(), "e1", time.Now().Add(time.Hour), LivePrefix, models.StatusActionLive)
	assert.ErrorContains(t, err, "denied")
}

func TestDeleteStatusTransitions(t *testing.T) {
	client := &fakeScheduler{deleteErr: &types.ResourceNotFoundException{Message: aws.String("gone")}}
	svc := newService(client)

	require.NoError(t, svc.DeleteStatusTransitions(context.Background(), "e1"))
	assert.Equal(t, []string{"event-live-e1", "event-closed-e1"}, client.deleted)

	client.deleteErr = errors.New("boom")
	assert.Error(t, svc.DeleteStatusTransitions(context.Background(), "e1"))
}

func TestExpressionUsesUTC(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, "at(2025-01-01T04:30:00)", Expression(time.Date(2025, 1, 1, 10, 0, 0, 0, ist)))
}
