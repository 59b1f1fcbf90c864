package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"smsbridge/internal/domain"
	"smsbridge/internal/providers/twilio"
)

const (
	TwilioPath   = "/v1/webhooks/twilio"
	TelegramPath = "/v1/webhooks/telegram"

	twilioSignatureHeader = "X-Twilio-Signature"
	telegramSecretHeader  = "X-Telegram-Bot-Api-Secret-Token"

	maxBodyBytes = 1 << 20
	emptyTwiML   = "<Response></Response>"
)

// Inbound takes a raw webhook body. The router handles it inline; the queue
// ingress enqueues it for the worker.
type Inbound interface {
	ReceiveSMS(ctx context.Context, raw string) error
	ReceiveChat(ctx context.Context, raw string) error
}

// Webhook adapts provider callbacks to Inbound. Empty TwilioWebhookURL or
// TelegramSecretToken disables the matching authenticity check.
type Webhook struct {
	Inbound Inbound

	TwilioAuthToken     string
	TwilioWebhookURL    string // must match the exact URL configured in Twilio
	TelegramSecretToken string
}

func (w *Webhook) Register(mux *mux.Router) {
	mux.HandleFunc(TwilioPath, w.handleTwilio).Methods(http.MethodPost)
	mux.HandleFunc(TelegramPath, w.handleTelegram).Methods(http.MethodPost)
}

func (w *Webhook) handleTwilio(rw http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(rw, r)
	if !ok {
		return
	}
	if w.TwilioWebhookURL != "" {
		form, _ := url.ParseQuery(raw)
		if !twilio.VerifySignature(w.TwilioAuthToken, w.TwilioWebhookURL, r.Header.Get(twilioSignatureHeader), form) {
			slog.Warn("twilio webhook signature mismatch", "request_id", RequestIDFrom(r.Context()))
			http.Error(rw, ErrInvalidSignature, http.StatusUnauthorized)
			return
		}
	}

	if err := w.Inbound.ReceiveSMS(r.Context(), raw); err != nil {
		writeInboundError(rw, r, "sms", err)
		return
	}
	rw.Header().Set("Content-Type", "text/html")
	rw.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(rw, emptyTwiML)
}

func (w *Webhook) handleTelegram(rw http.ResponseWriter, r *http.Request) {
	if w.TelegramSecretToken != "" {
		got := r.Header.Get(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(w.TelegramSecretToken)) != 1 {
			slog.Warn("telegram webhook secret mismatch", "request_id", RequestIDFrom(r.Context()))
			http.Error(rw, ErrInvalidSignature, http.StatusUnauthorized)
			return
		}
	}
	raw, ok := readBody(rw, r)
	if !ok {
		return
	}

	if err := w.Inbound.ReceiveChat(r.Context(), raw); err != nil {
		writeInboundError(rw, r, "chat", err)
		return
	}
	rw.WriteHeader(http.StatusOK)
}

func readBody(rw http.ResponseWriter, r *http.Request) (string, bool) {
	b, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(rw, ErrBadBody, http.StatusBadRequest)
		return "", false
	}
	return string(b), true
}

func writeInboundError(rw http.ResponseWriter, r *http.Request, flow string, err error) {
	if errors.Is(err, domain.ErrInvalidMessage) {
		slog.Warn("rejected inbound payload", "flow", flow, "err", err, "request_id", RequestIDFrom(r.Context()))
		http.Error(rw, ErrInvalidMessage, http.StatusBadRequest)
		return
	}
	slog.Error("inbound handling failed", "flow", flow, "err", err, "request_id", RequestIDFrom(r.Context()))
	http.Error(rw, ErrDependency, http.StatusInternalServerError)
}
