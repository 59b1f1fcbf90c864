package twilio

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"smsbridge/internal/domain"
	"smsbridge/internal/observability"
)

type Sender interface {
	SendSMS(ctx context.Context, req SendRequest) (SendResponse, error)
}

// Provider is the SMS side of the bridge. Send errors are returned to the caller.
type Provider struct {
	Sender  Sender
	Breaker *gobreaker.CircuitBreaker
}

func NewBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "twilio",
		MaxRequests: 3,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
	})
}

// ParseMessage reads a Twilio inbound webhook body (application/x-www-form-urlencoded).
// Body and From must be present; MediaUrlN fields are carried over as media.
func (p *Provider) ParseMessage(raw string) (domain.Message, error) {
	// ParseQuery keeps every pair it could decode; presence checks below decide validity.
	form, _ := url.ParseQuery(raw)
	for _, field := range []string{"Body", "From"} {
		// Only presence is checked; an empty Body or From is accepted.
		if !form.Has(field) {
			return domain.Message{}, domain.MissingField(field)
		}
	}

	var media []string
	if n, err := strconv.Atoi(form.Get("NumMedia")); err == nil {
		for i := 0; i < n; i++ {
			if u := form.Get("MediaUrl" + strconv.Itoa(i)); u != "" {
				media = append(media, u)
			}
		}
	}

	return domain.NewMessage(form.Get("From"), "", form.Get("Body"), media), nil
}

func (p *Provider) SendMessage(ctx context.Context, msg domain.Message) error {
	start := time.Now()
	call := func() (any, error) {
		return p.Sender.SendSMS(ctx, SendRequest{
			From:      msg.Source,
			To:        msg.Destination,
			Body:      msg.Text,
			MediaURLs: msg.Media,
		})
	}

	var (
		res any
		err error
	)
	if p.Breaker == nil {
		res, err = call()
	} else {
		res, err = p.Breaker.Execute(call)
	}
	observability.ProviderLatency.WithLabelValues("twilio").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ProviderSends.WithLabelValues("twilio", "error").Inc()
		return fmt.Errorf("twilio send to %s: %w", msg.Destination, err)
	}
	observability.ProviderSends.WithLabelValues("twilio", "ok").Inc()

	if resp, ok := res.(SendResponse); ok {
		slog.Info("twilio message sent", "to", msg.Destination, "sid", resp.Sid, "status", resp.Status)
	}
	return nil
}
