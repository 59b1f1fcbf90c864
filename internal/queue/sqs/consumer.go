package sqsqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"smsbridge/internal/observability"
	"smsbridge/internal/providers"
)

type Consumer struct {
	SQS      API
	QueueURL string

	WaitTimeSeconds   int32
	MaxMessages       int32
	VisibilityTimeout int32
}

type Handler func(ctx context.Context, ev InboundEvent) error

// Receiver routes one inbound body per flow.
type Receiver interface {
	ReceiveSMS(ctx context.Context, raw string) error
	ReceiveChat(ctx context.Context, raw string) error
}

// Dispatch sends each event to the flow matching its Kind.
func Dispatch(r Receiver) Handler {
	return func(ctx context.Context, ev InboundEvent) error {
		kind, err := providers.ParseName(string(ev.Kind))
		if err != nil {
			return err
		}
		switch kind {
		case providers.Twilio:
			return r.ReceiveSMS(ctx, ev.Body)
		case providers.Telegram:
			return r.ReceiveChat(ctx, ev.Body)
		}
		return fmt.Errorf("no flow for %s", kind)
	}
}

// PollConcurrent processes events with a worker pool. Every message handed to
// the handler is deleted after that one attempt, whatever the outcome; a failed
// event is logged and dropped, never redelivered. Messages not yet started when
// ctx is canceled are left undeleted.
func (c *Consumer) PollConcurrent(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan types.Message, workers*2)
	errCh := make(chan error, 1)

	sendErr := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				// Buffered messages left at shutdown stay on the queue and
				// come back after their visibility timeout.
				if ctx.Err() != nil {
					observability.QueueEvents.WithLabelValues("handle", "released").Inc()
					continue
				}
				c.handle(ctx, m, handler)
			}
		}()
	}

	// Producer: fetch messages and enqueue for workers
	go func() {
		defer close(jobs)

		for {
			if ctx.Err() != nil {
				sendErr(ctx.Err())
				return
			}

			out, err := c.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
				QueueUrl:            &c.QueueURL,
				MaxNumberOfMessages: c.MaxMessages,
				WaitTimeSeconds:     c.WaitTimeSeconds,
				VisibilityTimeout:   c.VisibilityTimeout,
			})
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("sqs receive message failed", "err", err)
				}
				select {
				case <-ctx.Done():
				case <-time.After(500 * time.Millisecond):
				}
				continue
			}

			for _, m := range out.Messages {
				select {
				case jobs <- m:
				case <-ctx.Done():
					sendErr(ctx.Err())
					return
				}
			}
		}
	}()

	// Wait for shutdown signal (ctx canceled) or producer signals error
	err := <-errCh

	// Workers finish the events already in flight and release the rest of `jobs`.
	wg.Wait()
	return err
}

func (c *Consumer) handle(ctx context.Context, m types.Message, handler Handler) {
	// Deletes must land even while shutting down, or the event would be redelivered.
	defer c.delete(context.WithoutCancel(ctx), m)

	if m.Body == nil {
		observability.QueueEvents.WithLabelValues("handle", "poison").Inc()
		return
	}
	var ev InboundEvent
	if err := json.Unmarshal([]byte(*m.Body), &ev); err != nil {
		observability.QueueEvents.WithLabelValues("handle", "poison").Inc()
		slog.Error("sqs bad payload dropped", "err", err)
		return
	}

	if err := handler(ctx, ev); err != nil {
		observability.QueueEvents.WithLabelValues("handle", "error").Inc()
		slog.Error("inbound event failed", "err", err, "event_id", ev.ID, "kind", ev.Kind)
		return
	}
	observability.QueueEvents.WithLabelValues("handle", "ok").Inc()
}

func (c *Consumer) delete(ctx context.Context, m types.Message) {
	if _, err := c.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.QueueURL,
		ReceiptHandle: m.ReceiptHandle,
	}); err != nil {
		slog.Error("sqs delete message failed", "err", err)
	}
}
