package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/prometheus/client_golang/prometheus"

	"smsbridge/internal/app"
	"smsbridge/internal/awsutil"
	"smsbridge/internal/config"
	"smsbridge/internal/httpserver"
	"smsbridge/internal/logging"
	"smsbridge/internal/observability"
	sqsqueue "smsbridge/internal/queue/sqs"
	"smsbridge/internal/util"
)

func main() {
	cfg := config.LoadBridge()
	logging.Init("bridge", cfg.LogFormat, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge, err := app.Build(ctx, cfg.Base, cfg.State, cfg.Providers)
	if err != nil {
		slog.Error("bridge init failed", "err", err)
		os.Exit(1)
	}
	defer bridge.Close()

	observability.Register(prometheus.DefaultRegisterer)

	// Inline routing by default; with a queue the webhook only enqueues and the worker routes.
	var inbound httpserver.Inbound = bridge.Router
	ready := bridge.Ready
	if cfg.InboundQueueURL != "" {
		sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("bridge sqs client init failed", "err", err)
			os.Exit(1)
		}
		inbound = &sqsqueue.Ingress{
			Producer: &sqsqueue.Producer{SQS: sqsClient, QueueURL: cfg.InboundQueueURL},
			NewID:    util.NewEventID,
			Now:      util.NowUTC,
		}
		ready = append(ready, func(c context.Context) error {
			_, err := sqsClient.GetQueueAttributes(c, &sqs.GetQueueAttributesInput{
				QueueUrl:       &cfg.InboundQueueURL,
				AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
			})
			return err
		})
		slog.Info("bridge using queued ingress", "queue_url", cfg.InboundQueueURL)
	}

	s := httpserver.New()
	wh := &httpserver.Webhook{
		Inbound:             inbound,
		TwilioAuthToken:     cfg.TwilioAuthToken,
		TwilioWebhookURL:    cfg.TwilioWebhookURL,
		TelegramSecretToken: cfg.TelegramSecretToken,
	}
	wh.Register(s.Mux)
	s.RegisterOps(prometheus.DefaultGatherer, ready...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(observability.WebhookRequests),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("bridge shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("bridge listening", "port", cfg.Port, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("bridge server failed", "err", err)
		os.Exit(1)
	}
}
