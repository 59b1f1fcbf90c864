package providers

import (
	"context"
	"fmt"
	"strings"

	"smsbridge/internal/domain"
)

type Name string

const (
	Telegram Name = "telegram"
	Twilio   Name = "twilio"
)

func ParseName(s string) (Name, error) {
	switch n := Name(strings.ToLower(strings.TrimSpace(s))); n {
	case Telegram, Twilio:
		return n, nil
	default:
		return "", fmt.Errorf("unknown provider: %q", s)
	}
}

// Provider turns inbound webhook payloads into messages and delivers outbound ones.
//
// ParseMessage leaves Destination empty; callers fill it.
// Failures on malformed payloads are *domain.InvalidMessageError.
type Provider interface {
	ParseMessage(raw string) (domain.Message, error)
	SendMessage(ctx context.Context, msg domain.Message) error
}
