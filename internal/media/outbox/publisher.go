// Package outbox relays queued lifecycle events from the outbox table to
// Kafka with at-least-once delivery.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/visa-docs/internal/storage/postgres"
)

type Store interface {
	GetPending(ctx context.Context, limit int) ([]postgres.OutboxRecord, error)
	MarkProcessed(ctx context.Context, id int64) error
}

type Sink interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type Publisher struct {
	store     Store
	sink      Sink
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

type PublisherConfig struct {
	Store     Store
	Sink      Sink
	Interval  time.Duration
	BatchSize int
	Logger    zerolog.Logger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("event sink is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got: %v", cfg.Interval)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got: %d", cfg.BatchSize)
	}

	return &Publisher{
		store:     cfg.Store,
		sink:      cfg.Sink,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger.With().Str("component", "outbox_publisher").Logger(),
	}, nil
}

// Start polls the outbox every interval until ctx is canceled. A failing
// batch is logged and retried on the next tick.
func (p *Publisher) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().
		Dur("interval", p.interval).
		Int("batch_size", p.batchSize).
		Msg("outbox publisher started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Err(ctx.Err()).Msg("outbox publisher stopped")
			return ctx.Err()

		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.Error().Err(err).Msg("failed to publish batch")
			}
		}
	}
}

// PublishBatch relays one batch and returns how many events were published.
// Events are keyed by media id so a consumer sees each record's events in order.
// An event that is published but not marked will be sent again.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	records, err := p.store.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending records: %w", err)
	}
	if len(records) == 0 {
		p.logger.Debug().Msg("no pending events to publish")
		return 0, nil
	}

	var published, failed, marked int
	for _, record := range records {
		log := p.logger.With().
			Str("event_id", record.EventID).
			Str("event_type", record.EventType).
			Str("aggregate_id", record.AggregateID).
			Int64("outbox_id", record.ID).
			Logger()

		if err := p.sink.Publish(ctx, record.AggregateID, record.Payload); err != nil {
			log.Error().Err(err).Msg("failed to publish event to kafka")
			failed++
			// Later events of the same media must not overtake this one.
			break
		}
		published++

		if err := p.store.MarkProcessed(ctx, record.ID); err != nil {
			log.Warn().Err(err).Msg("failed to mark event as processed")
			continue
		}
		marked++
	}

	p.logger.Info().
		Int("total", len(records)).
		Int("published", published).
		Int("failed", failed).
		Int("marked", marked).
		Msg("batch processing completed")

	return published, nil
}
