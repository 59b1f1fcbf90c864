package config

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"smsbridge/internal/lazy"
)

const providerJSON = `{
  "message_providers": {
    "telegram": {"token": "tg-file", "base_url": "https://tg.example/bot{}"},
    "twilio": {"sid": "AC-file", "token": "", "number": "+15550009999"}
  }
}`

func TestLoadBridgeDefaults(t *testing.T) {
	unsetenv(t, "BRIDGE_ENV", "STATE_BACKEND", "STATE_DYNAMODB_TABLE", "STATE_SCAN_PAGE_SIZE", "TELEGRAM_API_ENDPOINT", "PORT")
	cfg := LoadBridge()

	if cfg.Env != Dev {
		t.Fatalf("expected dev, got %q", cfg.Env)
	}
	if cfg.Backend != "dynamodb" || cfg.Table != "sms-bridge-state" || cfg.ScanPageSize != 100 {
		t.Fatalf("unexpected state config %+v", cfg.State)
	}
	if cfg.TelegramAPIEndpoint != "https://api.telegram.org/bot%s/%s" {
		t.Fatalf("unexpected telegram endpoint %q", cfg.TelegramAPIEndpoint)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
}

func TestLoadBridgeRejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("BRIDGE_ENV", "staging")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown environment")
		}
	}()
	LoadBridge()
}

func TestLoadBridgePostgresNeedsDSN(t *testing.T) {
	t.Setenv("STATE_BACKEND", "postgres")
	unsetenv(t, "DB_DSN")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic without DB_DSN")
		}
	}()
	LoadBridge()
}

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestParseEnvironment(t *testing.T) {
	for in, want := range map[string]Environment{"prod": Prod, " DEV ": Dev, "test": Test} {
		got, err := ParseEnvironment(in)
		if err != nil || got != want {
			t.Fatalf("ParseEnvironment(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEnvironment("qa"); err == nil {
		t.Fatalf("expected error for qa")
	}
}

func TestParseS3Path(t *testing.T) {
	cases := []struct {
		in          string
		bucket, key string
		ok          bool
	}{
		{"s3://conf/bridge/prod.json", "conf", "bridge/prod.json", true},
		{"s3://conf/", "", "", false},
		{"s3://conf", "", "", false},
		{"/etc/bridge.json", "", "", false},
	}
	for _, tc := range cases {
		b, k, ok := ParseS3Path(tc.in)
		if b != tc.bucket || k != tc.key || ok != tc.ok {
			t.Fatalf("ParseS3Path(%q) = %q, %q, %v", tc.in, b, k, ok)
		}
	}
}

func TestTelegramEndpoint(t *testing.T) {
	got, err := TelegramEndpoint("https://api.telegram.org/bot{}")
	if err != nil || got != "https://api.telegram.org/bot%s/%s" {
		t.Fatalf("got %q, %v", got, err)
	}
	got, err = TelegramEndpoint("http://proxy/x%20y/bot{}/")
	if err != nil || got != "http://proxy/x%%20y/bot%s/%s" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := TelegramEndpoint("https://api.telegram.org/bot"); err == nil {
		t.Fatalf("expected error without placeholder")
	}
}

func TestApplyLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.json")
	if err := os.WriteFile(path, []byte(providerJSON), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := Providers{TwilioAuthToken: "env-token", TelegramToken: "tg-env"}
	if err := (Base{ConfigPath: path}).ApplyFile(context.Background(), nil, &p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.TelegramToken != "tg-file" || p.TelegramAPIEndpoint != "https://tg.example/bot%s/%s" {
		t.Fatalf("telegram not overridden: %+v", p)
	}
	if p.TwilioAccountSID != "AC-file" || p.TwilioFromNumber != "+15550009999" {
		t.Fatalf("twilio not overridden: %+v", p)
	}
	if p.TwilioAuthToken != "env-token" {
		t.Fatalf("empty file value must not override env, got %q", p.TwilioAuthToken)
	}
}

func TestApplyWithoutPathIsNoop(t *testing.T) {
	p := Providers{TelegramToken: "x"}
	if err := (Base{}).ApplyFile(context.Background(), nil, &p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.TelegramToken != "x" {
		t.Fatalf("unexpected change %+v", p)
	}
}

type fakeObjects struct {
	bucket, key string
	body        string
	err         error
}

func (f *fakeObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestLoadProviderFileFromS3(t *testing.T) {
	objects := &fakeObjects{body: providerJSON}
	f, err := LoadProviderFile(context.Background(), "s3://conf/bridge.json", lazy.Ready[ObjectGetter](objects))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if objects.bucket != "conf" || objects.key != "bridge.json" {
		t.Fatalf("unexpected object %s/%s", objects.bucket, objects.key)
	}
	if f.MessageProviders.Telegram.Token != "tg-file" {
		t.Fatalf("unexpected file %+v", f)
	}
}

func TestLoadProviderFileS3Error(t *testing.T) {
	boom := errors.New("AccessDenied")
	_, err := LoadProviderFile(context.Background(), "s3://conf/bridge.json", lazy.Ready[ObjectGetter](&fakeObjects{err: boom}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected s3 error, got %v", err)
	}
}

func TestLoadProviderFileMissing(t *testing.T) {
	if _, err := LoadProviderFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
