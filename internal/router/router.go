// Package router moves messages between the SMS and chat providers.
//
// ReceiveSMS broadcasts an inbound SMS to every active chat identity.
// ReceiveChat either relays a chat message to SMS or treats it as a
// subscription command, depending only on whether its text is a relay
// payload (see ParseRelay).
package router

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"

	"smsbridge/internal/domain"
	"smsbridge/internal/observability"
	"smsbridge/internal/providers"
)

const startCommand = "start"

type Subscriptions interface {
	ActiveIdentities(ctx context.Context) iter.Seq2[string, error]
	PutActive(ctx context.Context, identity string, active bool) error
}

type Router struct {
	SMS           providers.Provider
	Chat          providers.Provider
	Subscriptions Subscriptions

	// SenderNumber is the SMS number relayed messages are sent from.
	SenderNumber string
}

// ReceiveSMS handles an inbound SMS webhook body. Recipients are sent to one
// at a time in scan order; a failing recipient does not stop the others.
func (r *Router) ReceiveSMS(ctx context.Context, raw string) error {
	msg, err := r.SMS.ParseMessage(raw)
	if err != nil {
		observability.InboundMessages.WithLabelValues(string(providers.Twilio), "invalid").Inc()
		return err
	}
	observability.InboundMessages.WithLabelValues(string(providers.Twilio), "ok").Inc()

	msg.Text = fmt.Sprintf("Building: %s\n\n%s", msg.Source, msg.Text)

	var (
		sent    int
		sendErr []error
	)
	for identity, err := range r.Subscriptions.ActiveIdentities(ctx) {
		if err != nil {
			return fmt.Errorf("scan active identities: %w", err)
		}
		if err := ctx.Err(); err != nil {
			slog.Warn("broadcast abandoned", "building", msg.Source, "sent", sent, "err", err)
			return err
		}
		if err := r.Chat.SendMessage(ctx, msg.WithDestination(identity)); err != nil {
			slog.Error("broadcast send failed", "building", msg.Source, "chat_id", identity, "err", err)
			sendErr = append(sendErr, err)
			continue
		}
		sent++
	}
	observability.BroadcastRecipients.Observe(float64(sent))
	slog.Info("sms broadcast", "building", msg.Source, "recipients", sent)

	return errors.Join(sendErr...)
}

// ReceiveChat handles an inbound chat webhook body.
func (r *Router) ReceiveChat(ctx context.Context, raw string) error {
	msg, err := r.Chat.ParseMessage(raw)
	if err != nil {
		observability.InboundMessages.WithLabelValues(string(providers.Telegram), "invalid").Inc()
		return err
	}
	observability.InboundMessages.WithLabelValues(string(providers.Telegram), "ok").Inc()

	if relay, ok := ParseRelay(msg.Text); ok {
		observability.ChatDispatch.WithLabelValues("relay").Inc()
		return r.relay(ctx, msg, relay)
	}
	observability.ChatDispatch.WithLabelValues("command").Inc()
	return r.command(ctx, msg)
}

func (r *Router) relay(ctx context.Context, msg domain.Message, relay Relay) error {
	out := msg.Clone()
	out.Source = r.SenderNumber
	out.Destination = relay.Building
	out.Text = relay.Text

	slog.Info("relaying chat message to sms", "chat_id", msg.Source, "building", relay.Building)
	return r.SMS.SendMessage(ctx, out)
}

func (r *Router) command(ctx context.Context, msg domain.Message) error {
	active := msg.Text == startCommand
	if err := r.Subscriptions.PutActive(ctx, msg.Source, active); err != nil {
		return fmt.Errorf("put active state for %s: %w", msg.Source, err)
	}
	slog.Info("subscription updated", "chat_id", msg.Source, "active", active)

	reply := msg.Clone()
	reply.Destination = msg.Source
	reply.Text = "Set active state to " + strconv.FormatBool(active)
	return r.Chat.SendMessage(ctx, reply)
}
