// Package telegram is the chat side of the bridge.
//
// Outbound delivery problems (transport errors, API errors, a bot that cannot
// be initialized) are logged and never returned: callers always observe a
// successful send. The only error SendMessage returns is a destination that is
// not a numeric chat id, which is a caller bug rather than a delivery failure.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"smsbridge/internal/domain"
	"smsbridge/internal/lazy"
	"smsbridge/internal/observability"
)

// initBackoff spaces out getMe retries after a failed bot init.
const initBackoff = 30 * time.Second

type Provider struct {
	Bot     *lazy.Value[*tgbotapi.BotAPI]
	Limiter *rate.Limiter
}

// NewBot returns a lazily constructed bot client. endpoint uses the library's
// "https://api.telegram.org/bot%s/%s" format; empty means the public API.
func NewBot(token, endpoint string, hc *http.Client) *lazy.Value[*tgbotapi.BotAPI] {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return lazy.New(func(ctx context.Context) (*tgbotapi.BotAPI, error) {
		bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, hc)
		if err != nil {
			return nil, fmt.Errorf("telegram bot init: %w", err)
		}
		slog.Info("telegram bot initialized", "username", bot.Self.UserName)
		return bot, nil
	}).WithBackoff(initBackoff)
}

type inboundUpdate struct {
	Message *struct {
		Chat *struct {
			ID json.RawMessage `json:"id"`
		} `json:"chat"`
		Text *string `json:"text"`
	} `json:"message"`
}

// ParseMessage reads a webhook update. message.chat.id becomes Source (as a
// string) and message.text becomes Text.
func (p *Provider) ParseMessage(raw string) (domain.Message, error) {
	var u inboundUpdate
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return domain.Message{}, &domain.InvalidMessageError{Field: "message", Err: err}
	}
	switch {
	case u.Message == nil:
		return domain.Message{}, domain.MissingField("message")
	case u.Message.Chat == nil:
		return domain.Message{}, domain.MissingField("chat")
	case isNull(u.Message.Chat.ID):
		return domain.Message{}, domain.MissingField("id")
	case u.Message.Text == nil:
		return domain.Message{}, domain.MissingField("text")
	}

	source, err := chatIDString(u.Message.Chat.ID)
	if err != nil {
		return domain.Message{}, &domain.InvalidMessageError{Field: "id", Err: err}
	}
	return domain.NewMessage(source, "", *u.Message.Text, nil), nil
}

func (p *Provider) SendMessage(ctx context.Context, msg domain.Message) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(msg.Destination), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram destination %q is not a chat id: %w", msg.Destination, err)
	}
	text := strings.Join(append([]string{msg.Text}, msg.Media...), "\n\n")

	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			p.dropped(chatID, "rate_limit_wait", err)
			return nil
		}
	}

	bot, err := p.Bot.Get(ctx)
	if err != nil {
		p.dropped(chatID, "bot_init", err)
		return nil
	}

	start := time.Now()
	_, err = bot.Send(tgbotapi.NewMessage(chatID, text))
	observability.ProviderLatency.WithLabelValues("telegram").Observe(time.Since(start).Seconds())
	if err != nil {
		p.dropped(chatID, "send", err)
		return nil
	}
	observability.ProviderSends.WithLabelValues("telegram", "ok").Inc()
	return nil
}

func (p *Provider) dropped(chatID int64, stage string, err error) {
	observability.ProviderSends.WithLabelValues("telegram", "error").Inc()
	slog.Error("telegram send failed", "chat_id", chatID, "stage", stage, "err", err)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func chatIDString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
