// Command publish relays lifecycle events from the outbox table to Kafka.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/romariotrain/visa-docs/internal/app"
	"github.com/romariotrain/visa-docs/internal/config"
	"github.com/romariotrain/visa-docs/internal/logger"
	"github.com/romariotrain/visa-docs/internal/media/kafka"
	"github.com/romariotrain/visa-docs/internal/media/outbox"
	"github.com/romariotrain/visa-docs/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("PORTAL_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.Get()

	code := app.Run("publish", log, func(ctx context.Context) error {
		return run(ctx, cfg, log)
	})
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.RecordStore != config.RecordStorePostgres {
		return errors.New("the outbox relay needs the postgres record store")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is empty")
	}

	db, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka producer close")
		}
	}()

	if err := producer.HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Msg("kafka not reachable yet, events stay queued")
	}

	publisher, err := outbox.NewPublisher(outbox.PublisherConfig{
		Store:     postgres.NewOutboxRepo(db),
		Sink:      producer,
		Interval:  cfg.Outbox.Interval,
		BatchSize: cfg.Outbox.BatchSize,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
