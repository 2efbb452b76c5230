package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lectio/admin-console/internal/api"
	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/audit"
	"github.com/lectio/admin-console/internal/cache"
	"github.com/lectio/admin-console/internal/circuitbreaker"
	"github.com/lectio/admin-console/internal/config"
	"github.com/lectio/admin-console/internal/console"
	"github.com/lectio/admin-console/internal/events"
	"github.com/lectio/admin-console/internal/logging"
	"github.com/lectio/admin-console/internal/observability"
	"github.com/lectio/admin-console/internal/queries"
	"github.com/lectio/admin-console/internal/websocket"
	"github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	logger, logSink, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Service: "console"})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	defer logSink.Close()

	if err := cfg.ValidateConsole(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.WithError(err).Warn("Sentry disabled")
	}
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var clientOpts []apiclient.Option
	if cfg.Breaker.Enabled {
		breakers := circuitbreaker.NewManager(circuitbreaker.Config{
			MaxFailures: cfg.Breaker.MaxFailures,
			Timeout:     cfg.Breaker.Timeout,
		}, logger)
		clientOpts = append(clientOpts, apiclient.WithBreaker(breakers))
	}
	client, err := apiclient.New(apiclient.Config{BaseURL: cfg.API.URL, Timeout: cfg.API.Timeout}, logger, clientOpts...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create backend client")
	}

	store := newStore(ctx, cfg, logger)
	queryCache := cache.New(store, cache.Config{
		TTL: cfg.Cache.TTL,
		// enriched reads chain a page fetch and one round of user lookups
		FetchTimeout: 2 * cfg.API.Timeout,
	}, logger)
	service := queries.NewService(api.NewSet(client, logger), client, queryCache, queries.Config{AssetURL: console.AssetURL}, logger)

	hub := websocket.NewHub(cfg.Console.AllowedOrigin, cfg.InstanceID, logger)
	go hub.Run(ctx)
	service.Subscribe(hub)
	service.Subscribe(audit.NewListener(audit.NewLogRecorder(logger), cfg.InstanceID, logger))

	if cfg.Kafka.Enabled() {
		producer, consumer := startKafka(ctx, cfg, service, hub, logger)
		defer producer.Close()
		defer consumer.Close()
		service.Subscribe(producer)
	} else {
		logger.Info("KAFKA_BROKERS not set - mutations stay local to this instance")
	}

	server := console.New(service, hub, logger, console.Options{
		AllowedOrigin: cfg.Console.AllowedOrigin,
		CookieSecure:  cfg.Console.CookieSecure,
		StaticDir:     cfg.Console.StaticDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Console.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.API.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.Console.Port,
			"backend":  cfg.API.URL,
			"instance": cfg.InstanceID,
		}).Info("Starting console server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	cancel()

	logger.Info("Server gracefully stopped")
}

// newStore prefers Redis so every console instance shares one cache.
func newStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) cache.Store {
	if cfg.Cache.RedisAddr == "" {
		logger.Info("Using in-memory query cache")
		return cache.NewMemoryStore(cfg.Cache.Retention)
	}

	store := cache.NewRedisStore(cache.RedisConfig{
		Addr:      cfg.Cache.RedisAddr,
		Password:  cfg.Cache.RedisPassword,
		DB:        cfg.Cache.RedisDB,
		Retention: cfg.Cache.Retention,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.WithError(err).WithField("addr", cfg.Cache.RedisAddr).Fatal("Redis not reachable")
	}
	logger.WithField("addr", cfg.Cache.RedisAddr).Info("Using Redis query cache")
	return store
}

// startKafka publishes local mutations and applies those of other
// instances: their families are invalidated here and relayed to this
// instance's dashboards.
func startKafka(ctx context.Context, cfg *config.Config, service *queries.Service, hub *websocket.Hub, logger *logrus.Logger) (*events.KafkaProducer, *events.KafkaConsumer) {
	producer, err := events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.InstanceID, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka producer")
	}

	handler := events.MutationHandlerFunc(func(ctx context.Context, e events.MutationEvent) error {
		if err := service.ApplyRemote(ctx, e.Mutation); err != nil {
			return err
		}
		hub.Relay(e.Mutation, e.Source)
		return nil
	})
	consumer, err := events.NewKafkaConsumer(events.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		// one group per instance: every console must see every mutation
		GroupID:    cfg.Kafka.GroupID + "-" + cfg.InstanceID,
		SkipSource: cfg.InstanceID,
	}, handler, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka consumer")
	}

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Kafka consumer stopped")
		}
	}()
	logger.WithField("brokers", cfg.Kafka.Brokers).Info("Kafka invalidation stream connected")
	return producer, consumer
}
