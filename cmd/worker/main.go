package main

import (
	"context"
	"errors"
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
)

func main() {
	cfg := config.LoadWorker()
	logging.Init("worker", cfg.LogFormat, cfg.LogLevel)

	// Use a root ctx we can cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge, err := app.Build(ctx, cfg.Base, cfg.State, cfg.Providers)
	if err != nil {
		slog.Error("worker init failed", "err", err)
		os.Exit(1)
	}
	defer bridge.Close()

	sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion)
	if err != nil {
		slog.Error("worker sqs client init failed", "err", err)
		os.Exit(1)
	}
	queueReachable := func(c context.Context) error {
		_, err := sqsClient.GetQueueAttributes(c, &sqs.GetQueueAttributesInput{
			QueueUrl:       &cfg.InboundQueueURL,
			AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
		})
		return err
	}

	startupCtx, startupCancel := context.WithTimeout(ctx, 3*time.Second)
	defer startupCancel()
	if err := queueReachable(startupCtx); err != nil {
		slog.Error("sqs not reachable", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	// health server (liveness + readiness + metrics)
	health := httpserver.New()
	health.RegisterOps(prometheus.DefaultGatherer, append(bridge.Ready, queueReachable)...)
	healthSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpserver.Logging(health.Mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthErrCh := make(chan error, 1)
	go func() {
		slog.Info("worker health listening", "port", cfg.Port)
		healthErrCh <- healthSrv.ListenAndServe()
	}()

	consumer := &sqsqueue.Consumer{
		SQS: sqsClient, QueueURL: cfg.InboundQueueURL,
		WaitTimeSeconds:   cfg.SQSWaitTime,
		MaxMessages:       cfg.SQSMaxMsgs,
		VisibilityTimeout: cfg.SQSVizTimeout,
	}
	dispatch := sqsqueue.Dispatch(bridge.Router)

	pollErrCh := make(chan error, 1)
	go func() {
		slog.Info("worker starting poll", "queue_url", cfg.InboundQueueURL)
		pollErrCh <- consumer.PollConcurrent(ctx, cfg.WorkerConcurrency, func(ctx context.Context, ev sqsqueue.InboundEvent) error {
			start := time.Now()
			err := dispatch(ctx, ev)
			slog.Info("worker event finish",
				"event_id", ev.ID,
				"kind", ev.Kind,
				"ok", err == nil,
				"duration", time.Since(start),
			)
			return err
		})
	}()

	// shutdown wiring
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-pollErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("worker poll failed", "err", err)
			os.Exit(1)
		}
	case err := <-healthErrCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("worker health server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("worker shutdown", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	select {
	case <-pollErrCh:
	case <-time.After(10 * time.Second):
		slog.Info("worker shutdown timeout waiting for poll loop")
	}
}
