package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"smsbridge/internal/lazy"
)

// ObjectGetter is the slice of the S3 client used to fetch a provider file.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ProviderFile is the JSON provider configuration:
//
//	{"message_providers": {
//	    "telegram": {"token": "...", "base_url": "https://api.telegram.org/bot{}"},
//	    "twilio": {"sid": "...", "token": "...", "number": "..."}}}
type ProviderFile struct {
	MessageProviders struct {
		Telegram struct {
			Token   string `json:"token"`
			BaseURL string `json:"base_url"`
		} `json:"telegram"`
		Twilio struct {
			SID    string `json:"sid"`
			Token  string `json:"token"`
			Number string `json:"number"`
		} `json:"twilio"`
	} `json:"message_providers"`
}

// ApplyFile overlays the provider file at b.ConfigPath, if any, onto p.
// The S3 client is only built for s3:// paths.
func (b Base) ApplyFile(ctx context.Context, objects *lazy.Value[ObjectGetter], p *Providers) error {
	if b.ConfigPath == "" {
		return nil
	}
	f, err := LoadProviderFile(ctx, b.ConfigPath, objects)
	if err != nil {
		return err
	}
	return f.Apply(p)
}

// LoadProviderFile reads path from the local filesystem or, for s3://bucket/key, from S3.
func LoadProviderFile(ctx context.Context, path string, objects *lazy.Value[ObjectGetter]) (ProviderFile, error) {
	var (
		raw []byte
		err error
	)
	if bucket, key, ok := ParseS3Path(path); ok {
		raw, err = readObject(ctx, objects, bucket, key)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return ProviderFile{}, fmt.Errorf("load config %s: %w", path, err)
	}

	var f ProviderFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return ProviderFile{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	slog.Info("provider configuration loaded", "path", path)
	return f, nil
}

func readObject(ctx context.Context, objects *lazy.Value[ObjectGetter], bucket, key string) ([]byte, error) {
	if objects == nil {
		return nil, fmt.Errorf("no s3 client configured")
	}
	client, err := objects.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// ParseS3Path splits s3://bucket/key. ok is false for anything else.
func ParseS3Path(path string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Apply copies every non-empty file value over p.
func (f ProviderFile) Apply(p *Providers) error {
	tg := f.MessageProviders.Telegram
	if tg.Token != "" {
		p.TelegramToken = tg.Token
	}
	if tg.BaseURL != "" {
		endpoint, err := TelegramEndpoint(tg.BaseURL)
		if err != nil {
			return err
		}
		p.TelegramAPIEndpoint = endpoint
	}

	tw := f.MessageProviders.Twilio
	if tw.SID != "" {
		p.TwilioAccountSID = tw.SID
	}
	if tw.Token != "" {
		p.TwilioAuthToken = tw.Token
	}
	if tw.Number != "" {
		p.TwilioFromNumber = tw.Number
	}
	return nil
}

// TelegramEndpoint turns a base_url template such as https://api.telegram.org/bot{}
// into the bot library's endpoint format (https://api.telegram.org/bot%s/%s).
func TelegramEndpoint(baseURL string) (string, error) {
	if strings.Count(baseURL, "{}") != 1 {
		return "", fmt.Errorf("telegram base_url %q must contain exactly one {} token placeholder", baseURL)
	}
	escaped := strings.ReplaceAll(baseURL, "%", "%%")
	return strings.TrimSuffix(strings.Replace(escaped, "{}", "%s", 1), "/") + "/%s", nil
}
