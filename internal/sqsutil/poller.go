package sqsutil

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// ErrDrop marks a message that can never succeed. It is deleted instead of
// being left for redelivery.
var ErrDrop = errors.New("drop message")

// Handler processes one message body.
type Handler func(ctx context.Context, body string) error

// Poller long-polls one queue and deletes every message its handler accepts
// or drops. Failed messages stay on the queue and become visible again.
type Poller struct {
	Client     Client
	QueueURL   string
	Name       string
	Handle     Handler
	RetryDelay time.Duration
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if p.QueueURL == "" {
		return fmt.Errorf("%s queue URL not configured", p.Name)
	}
	log.Printf("Starting to process %s messages from %s", p.Name, p.QueueURL)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Context cancelled, stopping %s processor", p.Name)
			return ctx.Err()
		default:
		}

		if _, err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("Error receiving messages from %s SQS queue: %v", p.Name, err)
			p.wait(ctx)
		}
	}
}

// PollOnce receives one batch, handles it and deletes the finished messages.
// It returns how many messages were deleted.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	rawMessages, err := ReceiveMessage(ctx, p.Client, p.QueueURL)
	if err != nil {
		return 0, err
	}

	if len(rawMessages) == 0 {
		return 0, nil
	}

	log.Printf("Received %d messages from %s queue.", len(rawMessages), p.Name)
	var messagesToDelete []types.DeleteMessageBatchRequestEntry

	for _, rawMessage := range rawMessages {
		body := aws.ToString(rawMessage.Body)
		err := p.Handle(ctx, body)
		switch {
		case err == nil:
			messagesToDelete = append(messagesToDelete, DeleteEntry(rawMessage))
		case errors.Is(err, ErrDrop):
			log.Printf("Dropping %s message %s: %v", p.Name, aws.ToString(rawMessage.MessageId), err)
			messagesToDelete = append(messagesToDelete, DeleteEntry(rawMessage))
		default:
			log.Printf("Error processing %s message %s: %v, it will be retried", p.Name, aws.ToString(rawMessage.MessageId), err)
		}
	}

	if err := DeleteMessageBatch(ctx, p.Client, p.QueueURL, messagesToDelete); err != nil {
		log.Printf("Error batch deleting %s messages: %v", p.Name, err)
		return 0, nil
	}
	return len(messagesToDelete), nil
}

func (p *Poller) wait(ctx context.Context) {
	delay := p.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
