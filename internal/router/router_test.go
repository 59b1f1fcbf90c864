package router

import (
	"context"
	"errors"
	"iter"
	"net/url"
	"sort"
	"strings"
	"testing"

	"smsbridge/internal/domain"
	"smsbridge/internal/providers/telegram"
	"smsbridge/internal/providers/twilio"
)

// recordingProvider parses with a real provider and records sends.
type recordingProvider struct {
	parser interface {
		ParseMessage(raw string) (domain.Message, error)
	}
	sent    []domain.Message
	failFor map[string]error
	onSend  func()
}

func (p *recordingProvider) ParseMessage(raw string) (domain.Message, error) {
	return p.parser.ParseMessage(raw)
}

func (p *recordingProvider) SendMessage(ctx context.Context, msg domain.Message) error {
	p.sent = append(p.sent, msg)
	if p.onSend != nil {
		p.onSend()
	}
	if err, ok := p.failFor[msg.Destination]; ok {
		return err
	}
	return nil
}

type put struct {
	identity string
	active   bool
}

type fakeSubscriptions struct {
	state   map[string]bool
	order   []string
	puts    []put
	scanErr error
}

func newFakeSubscriptions(order []string, state map[string]bool) *fakeSubscriptions {
	return &fakeSubscriptions{state: state, order: order}
}

func (f *fakeSubscriptions) ActiveIdentities(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, id := range f.order {
			if f.state[id] && !yield(id, nil) {
				return
			}
		}
		if f.scanErr != nil {
			yield("", f.scanErr)
		}
	}
}

func (f *fakeSubscriptions) PutActive(ctx context.Context, identity string, active bool) error {
	f.puts = append(f.puts, put{identity, active})
	if f.state == nil {
		f.state = map[string]bool{}
	}
	if _, ok := f.state[identity]; !ok {
		f.order = append(f.order, identity)
	}
	f.state[identity] = active
	return nil
}

func newTestRouter(subs *fakeSubscriptions) (*Router, *recordingProvider, *recordingProvider) {
	sms := &recordingProvider{parser: &twilio.Provider{}}
	chat := &recordingProvider{parser: &telegram.Provider{}}
	return &Router{
		SMS:           sms,
		Chat:          chat,
		Subscriptions: subs,
		SenderNumber:  "+15550000000",
	}, sms, chat
}

func smsBody(from, body string) string {
	return url.Values{"From": []string{from}, "Body": []string{body}}.Encode()
}

func chatBody(t *testing.T, chatID, text string) string {
	t.Helper()
	return `{"message":{"chat":{"id":` + chatID + `},"text":` + quote(text) + `}}`
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func TestReceiveSMSBroadcastsToActiveIdentities(t *testing.T) {
	subs := newFakeSubscriptions([]string{"1", "2", "3"}, map[string]bool{"1": true, "2": false, "3": true})
	r, sms, chat := newTestRouter(subs)

	if err := r.ReceiveSMS(context.Background(), smsBody("555", "hi")); err != nil {
		t.Fatalf("receive sms: %v", err)
	}

	if len(sms.sent) != 0 {
		t.Fatalf("expected no sms sends, got %d", len(sms.sent))
	}
	if len(chat.sent) != 2 {
		t.Fatalf("expected 2 chat sends, got %d", len(chat.sent))
	}
	var dests []string
	for _, m := range chat.sent {
		if !strings.HasPrefix(m.Text, "Building: 555\n\nhi") {
			t.Fatalf("unexpected text %q", m.Text)
		}
		dests = append(dests, m.Destination)
	}
	sort.Strings(dests)
	if dests[0] != "1" || dests[1] != "3" {
		t.Fatalf("unexpected destinations %v", dests)
	}
}

func TestReceiveSMSContinuesAfterFailedRecipient(t *testing.T) {
	subs := newFakeSubscriptions([]string{"1", "bad", "3"}, map[string]bool{"1": true, "bad": true, "3": true})
	r, _, chat := newTestRouter(subs)
	boom := errors.New("not a chat id")
	chat.failFor = map[string]error{"bad": boom}

	err := r.ReceiveSMS(context.Background(), smsBody("555", "hi"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined send error, got %v", err)
	}
	if len(chat.sent) != 3 || chat.sent[2].Destination != "3" {
		t.Fatalf("expected all recipients attempted, got %v", chat.sent)
	}
}

func TestReceiveSMSAbandonedOnCancel(t *testing.T) {
	subs := newFakeSubscriptions([]string{"1", "2", "3"}, map[string]bool{"1": true, "2": true, "3": true})
	r, _, chat := newTestRouter(subs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chat.onSend = cancel

	err := r.ReceiveSMS(ctx, smsBody("555", "hi"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if len(chat.sent) != 1 || chat.sent[0].Destination != "1" {
		t.Fatalf("expected exactly one send before cancellation, got %v", chat.sent)
	}
}

func TestReceiveSMSScanError(t *testing.T) {
	subs := newFakeSubscriptions([]string{"1"}, map[string]bool{"1": true})
	subs.scanErr = errors.New("throttled")
	r, _, chat := newTestRouter(subs)

	if err := r.ReceiveSMS(context.Background(), smsBody("555", "hi")); err == nil {
		t.Fatalf("expected scan error")
	}
	if len(chat.sent) != 1 {
		t.Fatalf("expected sends before the failing page to happen, got %d", len(chat.sent))
	}
}

func TestReceiveSMSInvalidPayload(t *testing.T) {
	r, _, chat := newTestRouter(newFakeSubscriptions(nil, nil))

	err := r.ReceiveSMS(context.Background(), url.Values{"From": []string{"555"}}.Encode())
	if !errors.Is(err, domain.ErrInvalidMessage) {
		t.Fatalf("expected invalid message, got %v", err)
	}
	if len(chat.sent) != 0 {
		t.Fatalf("expected no sends")
	}
}

func TestReceiveChatRelay(t *testing.T) {
	subs := newFakeSubscriptions(nil, nil)
	r, sms, chat := newTestRouter(subs)

	if err := r.ReceiveChat(context.Background(), chatBody(t, "7", `{"building":"42","text":"hello"}`)); err != nil {
		t.Fatalf("receive chat: %v", err)
	}

	if len(sms.sent) != 1 {
		t.Fatalf("expected 1 sms send, got %d", len(sms.sent))
	}
	got := sms.sent[0]
	if got.Destination != "42" || got.Text != "hello" || got.Source != "+15550000000" {
		t.Fatalf("unexpected relay %+v", got)
	}
	if len(subs.puts) != 0 {
		t.Fatalf("expected no repository writes, got %v", subs.puts)
	}
	if len(chat.sent) != 0 {
		t.Fatalf("expected no chat replies, got %d", len(chat.sent))
	}
}

func TestReceiveChatStartCommand(t *testing.T) {
	subs := newFakeSubscriptions(nil, nil)
	r, sms, chat := newTestRouter(subs)

	if err := r.ReceiveChat(context.Background(), chatBody(t, "7", "start")); err != nil {
		t.Fatalf("receive chat: %v", err)
	}

	if len(subs.puts) != 1 || subs.puts[0] != (put{"7", true}) {
		t.Fatalf("unexpected puts %v", subs.puts)
	}
	if len(chat.sent) != 1 {
		t.Fatalf("expected 1 chat reply, got %d", len(chat.sent))
	}
	reply := chat.sent[0]
	if reply.Destination != "7" || !strings.Contains(reply.Text, "true") {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(sms.sent) != 0 {
		t.Fatalf("expected no sms sends")
	}
}

func TestReceiveChatOtherTextDeactivates(t *testing.T) {
	for _, text := range []string{"stop", "Start", "start ", `{"building":"42"}`, `[1,2]`, `{"building":1,"text":"x"}`} {
		subs := newFakeSubscriptions(nil, nil)
		r, sms, chat := newTestRouter(subs)

		if err := r.ReceiveChat(context.Background(), chatBody(t, "9", text)); err != nil {
			t.Fatalf("receive chat %q: %v", text, err)
		}
		if len(subs.puts) != 1 || subs.puts[0] != (put{"9", false}) {
			t.Fatalf("text %q: unexpected puts %v", text, subs.puts)
		}
		if len(chat.sent) != 1 || chat.sent[0].Text != "Set active state to false" {
			t.Fatalf("text %q: unexpected replies %v", text, chat.sent)
		}
		if len(sms.sent) != 0 {
			t.Fatalf("text %q: expected no sms sends", text)
		}
	}
}

func TestReceiveChatThenBroadcast(t *testing.T) {
	subs := newFakeSubscriptions(nil, nil)
	r, _, chat := newTestRouter(subs)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		text := "start"
		if id == "2" {
			text = "stop"
		}
		if err := r.ReceiveChat(ctx, chatBody(t, id, text)); err != nil {
			t.Fatalf("command: %v", err)
		}
	}
	chat.sent = nil

	if err := r.ReceiveSMS(ctx, smsBody("555", "hi")); err != nil {
		t.Fatalf("receive sms: %v", err)
	}
	if len(chat.sent) != 2 {
		t.Fatalf("expected 2 broadcast sends, got %d", len(chat.sent))
	}
}
