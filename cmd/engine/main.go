package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/dispatchmon/cad-engine/internal/adapter/http"
	kafkaadapter "github.com/dispatchmon/cad-engine/internal/adapter/kafka"
	"github.com/dispatchmon/cad-engine/internal/config"
	"github.com/dispatchmon/cad-engine/internal/engine"
	"github.com/dispatchmon/cad-engine/internal/feed"
	"github.com/dispatchmon/cad-engine/internal/observability"
	"github.com/dispatchmon/cad-engine/internal/pubsub"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	// Optional .env for local development; production uses real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	fetcher := feed.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger)
	hub := pubsub.NewHub()

	// Optional Kafka sink for incident updates (feature-flagged via
	// KAFKA_ENABLED).
	var sink engine.Sink
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sink = writer
		logger.Info("kafka incident sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaIncidentsTopic)
	} else {
		logger.Info("kafka incident sink disabled")
	}

	eng := engine.New(fetcher, sink, hub, metrics, logger, clockwork.NewRealClock(), engine.Options{
		PollInterval: cfg.PollInterval,
		FetchTimeout: cfg.FeedTimeout,
		RetentionCap: cfg.RetentionCap,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the reconciliation loop.
	go func() {
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("engine error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
