// Package app wires configuration into a ready router. Both binaries build
// through here so they share one provider and repository setup.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"smsbridge/internal/awsutil"
	"smsbridge/internal/config"
	"smsbridge/internal/httpserver"
	"smsbridge/internal/lazy"
	"smsbridge/internal/providers"
	"smsbridge/internal/providers/telegram"
	"smsbridge/internal/providers/twilio"
	"smsbridge/internal/router"
	"smsbridge/internal/store/dynamo"
	"smsbridge/internal/store/pg"
)

const providerTimeout = 10 * time.Second

// Bridge is the process-lifetime object graph.
type Bridge struct {
	Env    config.Environment
	Router *router.Router
	Ready  []httpserver.ReadyzCheck

	closers []func()
}

// Build loads the provider file (if configured), constructs both providers and
// the subscription repository, and returns the router over them. AWS clients
// are created lazily on first use.
func Build(ctx context.Context, base config.Base, state config.State, prov config.Providers) (*Bridge, error) {
	objects := lazy.New(func(ctx context.Context) (config.ObjectGetter, error) {
		c, err := awsutil.NewS3Client(ctx, base.AWSRegion)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
	if err := base.ApplyFile(ctx, objects, &prov); err != nil {
		return nil, err
	}

	b := &Bridge{Env: base.Env}
	subs, ready, err := b.subscriptions(ctx, base, state)
	if err != nil {
		return nil, err
	}
	b.Ready = append(b.Ready, ready)

	sms, chat := NewProviders(prov)
	b.Router = &router.Router{
		SMS:           sms,
		Chat:          chat,
		Subscriptions: subs,
		SenderNumber:  prov.TwilioFromNumber,
	}
	slog.Info("bridge initialized", "env", base.Env, "state_backend", state.Backend)
	return b, nil
}

// NewProviders returns the SMS and chat providers for p.
func NewProviders(p config.Providers) (sms, chat providers.Provider) {
	hc := &http.Client{Timeout: providerTimeout}

	tg := &telegram.Provider{Bot: telegram.NewBot(p.TelegramToken, p.TelegramAPIEndpoint, hc)}
	if p.TelegramRPS > 0 {
		tg.Limiter = rate.NewLimiter(rate.Limit(p.TelegramRPS), max(p.TelegramBurst, 1))
	}

	tw := &twilio.Provider{
		Sender: &twilio.Client{
			AccountSID:          p.TwilioAccountSID,
			AuthToken:           p.TwilioAuthToken,
			HTTP:                hc,
			MessagingServiceSID: p.TwilioMessagingServiceSID,
			FromNumber:          p.TwilioFromNumber,
			BaseURL:             p.TwilioBaseURL,
		},
		Breaker: twilio.NewBreaker(),
	}
	return tw, tg
}

func (b *Bridge) subscriptions(ctx context.Context, base config.Base, state config.State) (router.Subscriptions, httpserver.ReadyzCheck, error) {
	switch state.Backend {
	case "dynamodb":
		db := lazy.New(func(ctx context.Context) (dynamo.API, error) {
			c, err := awsutil.NewDynamoDBClient(ctx, base.AWSRegion)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
		repo := dynamo.New(state.Table, state.ScanPageSize, db)
		return repo, repo.Ping, nil
	case "postgres":
		pool, err := pg.Open(ctx, state.DBDSN, pg.PoolOptions{
			MaxConns:        state.DBPoolMaxConns,
			MaxConnLifetime: state.DBPoolMaxConnLifetime,
			MaxConnIdleTime: state.DBPoolMaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		b.closers = append(b.closers, pool.Close)
		repo := pg.New(pool, state.ScanPageSize)
		return repo, repo.Ping, nil
	default:
		return nil, nil, fmt.Errorf("unknown STATE_BACKEND %q", state.Backend)
	}
}

// Close releases connections opened by Build.
func (b *Bridge) Close() {
	for _, c := range b.closers {
		c()
	}
}
