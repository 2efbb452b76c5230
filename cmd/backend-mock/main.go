package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lectio/admin-console/internal/config"
	"github.com/lectio/admin-console/internal/fakebackend"
	"github.com/lectio/admin-console/internal/logging"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	logger, logSink, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Service: "backend-mock"})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	defer logSink.Close()

	backend := fakebackend.New(cfg.Mock.JWTSecret, logger)
	demo := backend.SeedDemo()
	logger.WithFields(logrus.Fields{
		"super_admin": demo.SuperAdmin.Email,
		"admin":       demo.Admin.Email,
		"students":    len(demo.Students),
		"materials":   len(demo.Materials),
		"orders":      len(demo.Orders),
	}).Info("Demo data seeded")

	srv := &http.Server{
		Addr:         ":" + cfg.Mock.Port,
		Handler:      backend.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Mock.Port).Info("Starting Lectio backend mock")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down backend mock...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Backend mock stopped")
}
