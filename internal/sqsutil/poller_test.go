package sqsutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu         sync.Mutex
	batches    [][]types.Message
	receiveErr error
	deleted    []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	if len(f.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (f *fakeSQS) DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &sqs.DeleteMessageBatchOutput{}
	for _, e := range params.Entries {
		f.deleted = append(f.deleted, aws.ToString(e.Id))
		out.Successful = append(out.Successful, types.DeleteMessageBatchResultEntry{Id: e.Id})
	}
	return out, nil
}

func message(id, body string) types.Message {
	return types.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("rh-" + id),
		Body:          aws.String(body),
	}
}

func TestPollOnceDeletesHandledAndDroppedMessages(t *testing.T) {
	client := &fakeSQS{batches: [][]types.Message{{
		message("1", "ok"),
		message("2", "retry"),
		message("3", "bad"),
	}}}

	p := &Poller{
		Client:   client,
		QueueURL: "https://sqs.local/queue",
		Name:     "test",
		Handle: func(ctx context.Context, body string) error {
			switch body {
			case "retry":
				return errors.New("temporary failure")
			case "bad":
				return fmt.Errorf("malformed: %w", ErrDrop)
			}
			return nil
		},
	}

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"1", "3"}, client.deleted)
}

func TestPollOnceEmptyBatch(t *testing.T) {
	client := &fakeSQS{}
	p := &Poller{Client: client, QueueURL: "q", Name: "test", Handle: func(context.Context, string) error {
		t.Fatal("handler must not run")
		return nil
	}}

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, client.deleted)
}

func TestRunStopsOnCancel(t *testing.T) {
	client := &fakeSQS{receiveErr: errors.New("unreachable")}
	p := &Poller{Client: client, QueueURL: "q", Name: "test", RetryDelay: time.Millisecond,
		Handle: func(context.Context, string) error { return nil }}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunRequiresQueueURL(t *testing.T) {
	p := &Poller{Name: "test"}
	assert.Error(t, p.Run(context.Background()))
}
