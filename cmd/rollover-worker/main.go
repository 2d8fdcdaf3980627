package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financas/internal/amqp"
	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/storage"
	"financas/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting rollover-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	st, err := newStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer st.Close()

	queries := finance.NewQueryService(st)
	rollover := finance.NewRollover(st, queries, core.TrackedOwners())

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	runOnce(ctx, rollover, amqpClient)

	ticker := time.NewTicker(cfg.RolloverInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Rollover worker stopped")
			return
		case <-ticker.C:
			runOnce(ctx, rollover, amqpClient)
		}
	}
}

// runOnce ensures the month after the real current one exists and, if
// this tick generated it, publishes the event.
func runOnce(ctx context.Context, rollover *finance.Rollover, amqpClient *amqp.Client) {
	source := core.CurrentMonthKey(time.Now())

	target, generated, err := rollover.EnsureNextMonth(ctx, source)
	if err != nil {
		slog.ErrorContext(ctx, "Rollover run failed", "error", err, "source", source)
		return
	}
	if !generated {
		return
	}

	if amqpClient == nil {
		slog.InfoContext(ctx, "Month generated, no AMQP client to notify", "target", target)
		return
	}
	if err := amqpClient.PublishMonthGenerated(ctx, source, target); err != nil {
		slog.ErrorContext(ctx, "Failed to publish month generated event", "error", err, "target", target)
	}
}

func newStore(cfg *config.Config) (store.Store, error) {
	if cfg.DataBackend == "sqlite" {
		return storage.NewSQLiteStore(cfg.SQLiteDBPath)
	}
	return store.NewMemory(), nil
}
