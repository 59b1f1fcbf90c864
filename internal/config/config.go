package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Base is shared by every binary.
type Base struct {
	Env        Environment `envconfig:"BRIDGE_ENV" default:"dev"`
	ConfigPath string      `envconfig:"BRIDGE_CONFIG"` // local path or s3://bucket/key
	LogFormat  string      `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel   string      `envconfig:"BRIDGE_LOG_LEVEL" default:"debug"`

	// AWS
	AWSRegion          string `envconfig:"AWS_REGION" default:"us-east-1"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
}

// State selects and tunes the subscription repository.
type State struct {
	Backend      string `envconfig:"STATE_BACKEND" default:"dynamodb"` // dynamodb | postgres
	Table        string `envconfig:"STATE_DYNAMODB_TABLE" default:"sms-bridge-state"`
	ScanPageSize int32  `envconfig:"STATE_SCAN_PAGE_SIZE" default:"100"`

	DBDSN                 string `envconfig:"DB_DSN"`
	DBPoolMaxConns        int32  `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
	DBPoolMaxConnLifetime string `envconfig:"DB_POOL_MAX_CONN_LIFETIME" default:"30m"`
	DBPoolMaxConnIdleTime string `envconfig:"DB_POOL_MAX_CONN_IDLE_TIME" default:"5m"`
}

// Providers carries credentials for both messaging services.
type Providers struct {
	TelegramToken       string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramAPIEndpoint string  `envconfig:"TELEGRAM_API_ENDPOINT" default:"https://api.telegram.org/bot%s/%s"`
	TelegramSecretToken string  `envconfig:"TELEGRAM_SECRET_TOKEN"`
	TelegramRPS         float64 `envconfig:"TELEGRAM_RPS" default:"25"`
	TelegramBurst       int     `envconfig:"TELEGRAM_BURST" default:"5"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `envconfig:"TWILIO_FROM_NUMBER"`
	TwilioBaseURL    string `envconfig:"TWILIO_BASE_URL" default:"https://api.twilio.com"`
	TwilioWebhookURL string `envconfig:"TWILIO_WEBHOOK_URL"` // must match the exact URL configured in Twilio

	// Used as the sender when TWILIO_FROM_NUMBER is empty.
	TwilioMessagingServiceSID string `envconfig:"TWILIO_MESSAGING_SERVICE_SID"`
}

type BridgeConfig struct {
	Base
	State
	Providers

	Port string `envconfig:"PORT" default:"8080"`

	// Optional queued ingress. When set, webhooks are enqueued instead of routed inline.
	InboundQueueURL string `envconfig:"INBOUND_QUEUE_URL"`
}

type WorkerConfig struct {
	Base
	State
	Providers

	Port string `envconfig:"PORT" default:"8081"`

	// AWS / SQS
	InboundQueueURL string `envconfig:"INBOUND_QUEUE_URL" required:"true"`
	SQSWaitTime     int32  `envconfig:"SQS_WAIT_TIME" default:"20"`
	SQSMaxMsgs      int32  `envconfig:"SQS_MAX_MSGS" default:"10"`
	SQSVizTimeout   int32  `envconfig:"SQS_VISIBILITY_TIMEOUT" default:"60"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"20"`
}

func LoadBridge() BridgeConfig {
	var cfg BridgeConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	if err := cfg.State.validate(); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWorker() WorkerConfig {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	if err := cfg.State.validate(); err != nil {
		panic(err)
	}
	return cfg
}

func (s State) validate() error {
	switch s.Backend {
	case "dynamodb":
		if s.Table == "" {
			return fmt.Errorf("STATE_DYNAMODB_TABLE is required for the dynamodb backend")
		}
	case "postgres":
		if s.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q (want dynamodb or postgres)", s.Backend)
	}
	return nil
}
