package trending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"ms-discovery/internal/models"
)

// Sender is the subset of *sqs.Client used to enqueue jobs.
type Sender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Enqueue sends a trending job to queueURL and returns the SQS message id.
func Enqueue(ctx context.Context, sender Sender, queueURL, action string, at time.Time) (string, error) {
	switch action {
	case models.TrendingActionRecalculate, models.TrendingActionSync:
	default:
		return "", fmt.Errorf("unknown trending action %q", action)
	}

	body, err := json.Marshal(models.TrendingMessage{Action: action, Timestamp: at.UTC().Format(time.RFC3339)})
	if err != nil {
		return "", fmt.Errorf("failed to marshal trending job: %w", err)
	}

	out, err := sender.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue trending job: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
