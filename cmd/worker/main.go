// Command worker consumes phase-2 outbox tasks from Kafka and runs them against the database.
// It is only needed when KAFKA_BROKERS is set; otherwise the API runs tasks in-process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/app"
	"github.com/3lprints/storefront/internal/config"
	"github.com/3lprints/storefront/internal/logger"
	"github.com/3lprints/storefront/internal/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if !cfg.KafkaEnabled() {
		log.Fatal("KAFKA_BROKERS is not set; the API server runs tasks in-process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialise application", zap.Error(err))
	}
	defer a.Close()

	consumer := outbox.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, a.Tasks, a.Repos.Outbox, log, cfg.Outbox.MaxAttempts)

	log.Info("Worker started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID),
	)
	consumer.Start(ctx)
	log.Info("Worker stopped")
}
