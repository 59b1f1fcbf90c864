package sqsqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"smsbridge/internal/observability"
	"smsbridge/internal/providers"
)

type Producer struct {
	SQS      API
	QueueURL string
}

func (p *Producer) Enqueue(ctx context.Context, ev InboundEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: str(string(body)),
	})
	if err != nil {
		observability.QueueEvents.WithLabelValues("enqueue", "error").Inc()
		return fmt.Errorf("enqueue %s event: %w", ev.Kind, err)
	}
	observability.QueueEvents.WithLabelValues("enqueue", "ok").Inc()
	return nil
}

// Ingress accepts webhook bodies by enqueueing them, so the HTTP handler can
// answer before any provider or store call happens.
type Ingress struct {
	Producer *Producer
	NewID    func() string
	Now      func() time.Time
}

func (i *Ingress) ReceiveSMS(ctx context.Context, raw string) error {
	return i.enqueue(ctx, providers.Twilio, raw)
}

func (i *Ingress) ReceiveChat(ctx context.Context, raw string) error {
	return i.enqueue(ctx, providers.Telegram, raw)
}

func (i *Ingress) enqueue(ctx context.Context, kind providers.Name, raw string) error {
	return i.Producer.Enqueue(ctx, InboundEvent{
		ID:         i.NewID(),
		Kind:       kind,
		Body:       raw,
		ReceivedAt: i.Now(),
	})
}
