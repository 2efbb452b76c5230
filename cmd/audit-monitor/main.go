package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lectio/admin-console/internal/audit"
	"github.com/lectio/admin-console/internal/config"
	"github.com/lectio/admin-console/internal/events"
	"github.com/lectio/admin-console/internal/logging"
	"github.com/lectio/admin-console/internal/observability"
	"github.com/sirupsen/logrus"
)

func main() {
	replayDLQ := flag.Bool("replay-dlq", false, "record events parked on the dead letter topic instead of the live stream")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	logger, logSink, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Service: "audit-monitor"})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	defer logSink.Close()

	if err := cfg.ValidateAuditMonitor(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "audit-monitor")
	if err != nil {
		logger.WithError(err).Warn("Sentry disabled")
	}
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder, err := audit.OpenPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open audit database")
	}
	defer recorder.Close()

	var (
		handler  events.MutationHandler
		retrying *events.RetryingHandler
		topic    = events.MutationTopic
		groupID  = "lectio-audit"
	)
	if *replayDLQ {
		topic, groupID = events.MutationDLQTopic, "lectio-audit-dlq"
		handler = events.MutationHandlerFunc(func(ctx context.Context, e events.MutationEvent) error {
			err := audit.Handler(recorder).HandleMutation(ctx, e)
			if err != nil {
				observability.CaptureErr(err)
			}
			return err
		})
	} else {
		dlq, err := events.NewDLQProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create DLQ producer")
		}
		defer dlq.Close()
		retrying = events.NewRetryingHandler(audit.Handler(recorder), audit.IsRetryable, dlq, events.DefaultRetryPolicy, logger)
		handler = retrying
	}

	consumer, err := events.NewKafkaConsumer(events.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    groupID,
		Topics:     []string{topic},
		FromOldest: true,
	}, handler, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka consumer")
	}
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Kafka consumer stopped")
			cancel()
		}
	}()
	if retrying != nil {
		go reportMetrics(ctx, retrying, logger)
	}

	logger.WithFields(logrus.Fields{
		"topic":    topic,
		"group_id": groupID,
	}).Info("Audit monitor started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	logger.Info("Shutting down audit monitor...")
}

func reportMetrics(ctx context.Context, h *events.RetryingHandler, logger *logrus.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := h.Metrics()
			logger.WithFields(logrus.Fields{
				"processed":     m.Processed,
				"succeeded":     m.Succeeded,
				"retries":       m.Retries,
				"dead_lettered": m.DeadLettered,
				"failed":        m.Failed,
			}).Info("Audit stream metrics")
		}
	}
}
