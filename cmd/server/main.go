package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/azure/brand-analytics/internal/account"
	"github.com/azure/brand-analytics/internal/api"
	"github.com/azure/brand-analytics/internal/config"
	"github.com/azure/brand-analytics/internal/metrics"
	"github.com/azure/brand-analytics/internal/notifications"
	"github.com/azure/brand-analytics/internal/scheduler"
	"github.com/azure/brand-analytics/internal/session"
	"github.com/azure/brand-analytics/internal/storage"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Infof("Starting brand analytics service (storage: %s)", cfg.StorageBackend)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx := context.Background()
	store, err := storage.New(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	engine, classifier, err := account.Engines(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize analytics engines: %v", err)
	}

	accountService := account.NewService(cfg, store, engine, classifier)
	sessions := session.NewStore(store, cfg.SessionSlot)
	if _, err := sessions.Load(ctx); err != nil && !errors.Is(err, session.ErrNoData) {
		logrus.Warnf("Session not restored: %v", err)
	}

	notificationService := notifications.NewService(cfg)

	schedulerService := scheduler.NewService(cfg, sessions, accountService, notificationService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	handler := api.NewHandler(accountService, sessions, notificationService, engine.Local(), cfg.NumTopics)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.Router(promhttp.Handler()),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
