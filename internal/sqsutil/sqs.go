package sqsutil

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Client is the subset of *sqs.Client the workers use.
type Client interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

func ReceiveMessage(ctx context.Context, sqsClient Client, queueURL string) ([]types.Message, error) {
	result, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}

	return result.Messages, nil
}

// DeleteEntry builds the batch-delete entry for a received message.
func DeleteEntry(msg types.Message) types.DeleteMessageBatchRequestEntry {
	return types.DeleteMessageBatchRequestEntry{
		Id:            msg.MessageId,
		ReceiptHandle: msg.ReceiptHandle,
	}
}

func DeleteMessageBatch(ctx context.Context, client Client, queueURL string, entries []types.DeleteMessageBatchRequestEntry) error {
	if len(entries) == 0 {
		return nil
	}

	log.Printf("Deleting %d messages in a batch from SQS queue %s", len(entries), queueURL)
	result, err := client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(queueURL),
		Entries:  entries,
	})

	if err != nil {
		return fmt.Errorf("batch delete failed: %w", err)
	}

	if len(result.Failed) > 0 {
		log.Printf("Warning: %d messages failed to delete in batch operation", len(result.Failed))
		for _, failure := range result.Failed {
			log.Printf("Delete failure - ID: %s, Code: %s, Message: %s",
				aws.ToString(failure.Id), aws.ToString(failure.Code), aws.ToString(failure.Message))
		}
	}

	log.Printf("Successfully deleted %d messages in batch", len(result.Successful))
	return nil
}
