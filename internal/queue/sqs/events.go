package sqsqueue

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"smsbridge/internal/providers"
)

// InboundEvent is a webhook body waiting to be routed. Kind names the provider
// that produced Body. Keep it small; SQS has a 256KB message size limit.
type InboundEvent struct {
	ID         string         `json:"id"`
	Kind       providers.Name `json:"kind"`
	Body       string         `json:"body"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

// API is the subset of the SQS client used by the producer and consumer.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func str(s string) *string { return &s }
