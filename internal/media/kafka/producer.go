// Package kafka publishes media lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
	BatchSize    int
	Async        bool
	Logger       zerolog.Logger
}

type Message struct {
	Key   string
	Value []byte
}

// MetricsSnapshot is a point-in-time copy of the producer counters.
type MetricsSnapshot struct {
	MessagesPublished int64
	MessagesFailed    int64
	RetriesTotal      int64
	AvgPublishTime    time.Duration
}

type producerMetrics struct {
	MessagesPublished atomic.Int64
	MessagesFailed    atomic.Int64
	RetriesTotal      atomic.Int64
	PublishDuration   atomic.Int64
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Producer struct {
	config  ProducerConfig
	writer  messageWriter
	metrics producerMetrics
	closed  atomic.Bool
	logger  zerolog.Logger
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid producer config: %w", err)
	}
	setDefaults(&cfg)

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafkago.RequireAll,
		Async:        cfg.Async,
		// Retries are driven by Publish.
		MaxAttempts: 1,
	}

	return newProducer(cfg, w), nil
}

func newProducer(cfg ProducerConfig, w messageWriter) *Producer {
	return &Producer{
		config: cfg,
		writer: w,
		logger: cfg.Logger.With().Str("component", "kafka_producer").Str("topic", cfg.Topic).Logger(),
	}
}

func validateConfig(cfg *ProducerConfig) error {
	switch {
	case len(cfg.Brokers) == 0:
		return errors.New("brokers list is empty")
	case strings.TrimSpace(cfg.Topic) == "":
		return errors.New("topic is empty")
	case cfg.MaxRetries < 0:
		return errors.New("max_retries cannot be negative")
	case cfg.RetryBackoff < 0:
		return errors.New("retry_backoff cannot be negative")
	case cfg.WriteTimeout < 0:
		return errors.New("write_timeout cannot be negative")
	}
	return nil
}

func setDefaults(cfg *ProducerConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
}

// Publish writes one message. Events of the same media share a key, so they
// land on one partition in order.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	return p.PublishBatch(ctx, []Message{{Key: key, Value: value}})
}

// PublishBatch writes msgs in one request, retrying transient broker errors
// with exponential backoff.
func (p *Producer) PublishBatch(ctx context.Context, msgs []Message) error {
	if p.closed.Load() {
		return errors.New("producer is closed")
	}
	if len(msgs) == 0 {
		return nil
	}

	out := make([]kafkago.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafkago.Message{Key: []byte(m.Key), Value: m.Value}
	}

	start := time.Now()
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			p.metrics.RetriesTotal.Add(1)
		}
		err := p.writer.WriteMessages(ctx, out...)
		if err != nil && !isRetriableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(p.newBackOff(), ctx))
	if err != nil {
		p.metrics.MessagesFailed.Add(int64(len(msgs)))
		p.logger.Error().Err(err).Int("count", len(msgs)).Int("attempts", attempt).Msg("kafka publish failed")
		return fmt.Errorf("kafka publish: %w", err)
	}

	p.metrics.MessagesPublished.Add(int64(len(msgs)))
	p.metrics.PublishDuration.Add(int64(time.Since(start)))
	return nil
}

func (p *Producer) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.RetryBackoff
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(p.config.MaxRetries))
}

// HealthCheck dials the first reachable broker.
func (p *Producer) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return errors.New("producer is closed")
	}

	var lastErr error
	for _, broker := range p.config.Brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

func (p *Producer) GetMetrics() MetricsSnapshot {
	published := p.metrics.MessagesPublished.Load()
	s := MetricsSnapshot{
		MessagesPublished: published,
		MessagesFailed:    p.metrics.MessagesFailed.Load(),
		RetriesTotal:      p.metrics.RetriesTotal.Load(),
	}
	if published > 0 {
		s.AvgPublishTime = time.Duration(p.metrics.PublishDuration.Load() / published)
	}
	return s
}

func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return errors.New("producer already closed")
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

// isRetriableError treats unknown failures as transient; only context errors
// and errors that will fail the same way again are final.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}

	msg := strings.ToLower(err.Error())
	for _, final := range []string{"invalid", "too large", "authorization", "authentication"} {
		if strings.Contains(msg, final) {
			return false
		}
	}
	return true
}
