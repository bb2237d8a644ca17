// The audit worker consumes record-change events and appends them to the
// audit_log table.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AyushBalyan/Expense-Tracker/internal/amqp"
	"github.com/AyushBalyan/Expense-Tracker/internal/config"
	"github.com/AyushBalyan/Expense-Tracker/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL must be set for the audit worker")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer events.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Audit worker started", "queue", cfg.AMQPQueue)

	err = events.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
		return store.InsertAuditEvent(ctx, msg.Entity, msg.Op, msg.ID, msg.UserID, msg.Timestamp)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Audit worker stopped gracefully")
}
