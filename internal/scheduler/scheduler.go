package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/scheduler/types"

	"ms-discovery/internal/classifier"
	appconfig "ms-discovery/internal/config"
	"ms-discovery/internal/models"
)

const (
	LivePrefix   = "event-live-"
	ClosedPrefix = "event-closed-"
)

// Client is the subset of *scheduler.Client used here.
type Client interface {
	CreateSchedule(ctx context.Context, params *scheduler.CreateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.CreateScheduleOutput, error)
	UpdateSchedule(ctx context.Context, params *scheduler.UpdateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.UpdateScheduleOutput, error)
	DeleteSchedule(ctx context.Context, params *scheduler.DeleteScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.DeleteScheduleOutput, error)
}

// Service encapsulates the EventBridge Scheduler functionality.
type Service struct {
	SchedulerClient Client
	QueueARN        string
	RoleARN         string
	GroupName       string
}

// NewService creates a new scheduler service targeting the status queue.
func NewService(cfg appconfig.Config, schedulerClient Client) *Service {
	return &Service{
		SchedulerClient: schedulerClient,
		QueueARN:        cfg.SQSStatusQueueARN,
		RoleARN:         cfg.SchedulerRoleARN,
		GroupName:       cfg.SchedulerGroupName,
	}
}

// ScheduleStatusTransitions schedules the LIVE and CLOSED transitions of an
// event. Boundaries that are absent or not after now are skipped.
func (s *Service) ScheduleStatusTransitions(ctx context.Context, e classifier.Event, now time.Time) error {
	var errs []error
	if e.RegistrationStartOn != nil && e.RegistrationStartOn.After(now) {
		if err := s.CreateOrUpdateSchedule(ctx, e.ID, LiveAt(*e.RegistrationStartOn), LivePrefix, models.StatusActionLive); err != nil {
			errs = append(errs, err)
		}
	}
	if e.CloseOn != nil && e.CloseOn.After(now) {
		if err := s.CreateOrUpdateSchedule(ctx, e.ID, ClosedAt(*e.CloseOn), ClosedPrefix, models.StatusActionClosed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DeleteStatusTransitions removes both transition schedules of an event.
func (s *Service) DeleteStatusTransitions(ctx context.Context, eventID string) error {
	return errors.Join(
		s.DeleteSchedule(ctx, eventID, LivePrefix),
		s.DeleteSchedule(ctx, eventID, ClosedPrefix),
	)
}

// LiveAt is the first whole second at which an event whose registration
// starts at start classifies as Live.
func LiveAt(start time.Time) time.Time {
	return ceilSecond(start)
}

// ClosedAt is the first whole second at which an event closing at closeOn
// classifies as Closed. closeOn itself is still inside the window.
func ClosedAt(closeOn time.Time) time.Time {
	return ceilSecond(closeOn).Add(time.Second)
}

func ceilSecond(t time.Time) time.Time {
	if tr := t.Truncate(time.Second); !tr.Equal(t) {
		return tr.Add(time.Second)
	}
	return t
}

// Expression formats t as a one-shot schedule expression.
func Expression(t time.Time) string {
	return fmt.Sprintf("at(%s)", t.UTC().Format("2006-01-02T15:04:05"))
}

// CreateOrUpdateSchedule creates the schedule, or updates it when it already exists.
func (s *Service) CreateOrUpdateSchedule(ctx context.Context, eventID string, scheduleTime time.Time, namePrefix, action string) error {
	scheduleName := namePrefix + eventID
	log.Printf("Creating/updating schedule '%s' at time: %s", scheduleName, scheduleTime)

	inputJSON, err := json.Marshal(models.StatusMessage{EventID: eventID, Action: action})
	if err != nil {
		return fmt.Errorf("failed to marshal status message: %w", err)
	}

	target := types.Target{
		Arn:     aws.String(s.QueueARN),
		RoleArn: aws.String(s.RoleARN),
		Input:   aws.String(string(inputJSON)),
	}
	expression := Expression(scheduleTime)

	_, err = s.SchedulerClient.CreateSchedule(ctx, &scheduler.CreateScheduleInput{
		Name:                       aws.String(scheduleName),
		GroupName:                  aws.String(s.GroupName),
		ScheduleExpression:         aws.String(expression),
		Target:                     &target,
		FlexibleTimeWindow:         &types.FlexibleTimeWindow{Mode: types.FlexibleTimeWindowModeOff},
		ActionAfterCompletion:      types.ActionAfterCompletionDelete,
		ScheduleExpressionTimezone: aws.String("UTC"),
	})
	if err == nil {
		log.Printf("Successfully created schedule '%s'", scheduleName)
		return nil
	}

	var conflict *types.ConflictException
	if !errors.As(err, &conflict) {
		return fmt.Errorf("failed to create schedule %s: %w", scheduleName, err)
	}

	log.Printf("Schedule '%s' already exists. Attempting to update.", scheduleName)
	_, err = s.SchedulerClient.UpdateSchedule(ctx, &scheduler.UpdateScheduleInput{
		Name:                       aws.String(scheduleName),
		GroupName:                  aws.String(s.GroupName),
		ScheduleExpression:         aws.String(expression),
		Target:                     &target,
		FlexibleTimeWindow:         &types.FlexibleTimeWindow{Mode: types.FlexibleTimeWindowModeOff},
		ActionAfterCompletion:      types.ActionAfterCompletionDelete,
		ScheduleExpressionTimezone: aws.String("UTC"),
	})
	if err != nil {
		return fmt.Errorf("failed to update schedule %s: %w", scheduleName, err)
	}
	log.Printf("Successfully updated schedule '%s'", scheduleName)
	return nil
}

// DeleteSchedule removes a schedule. A schedule that already ran and deleted
// itself is not an error.
func (s *Service) DeleteSchedule(ctx context.Context, eventID, namePrefix string) error {
	scheduleName := namePrefix + eventID
	_, err := s.SchedulerClient.DeleteSchedule(ctx, &scheduler.DeleteScheduleInput{
		Name:      aws.String(scheduleName),
		GroupName: aws.String(s.GroupName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			log.Printf("Schedule '%s' not found for deletion, it may have already completed.", scheduleName)
			return nil
		}
		return fmt.Errorf("failed to delete schedule %s: %w", scheduleName, err)
	}
	log.Printf("Successfully deleted schedule '%s'", scheduleName)
	return nil
}
