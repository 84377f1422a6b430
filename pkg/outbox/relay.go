package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"
	"gorm.io/gorm"

	"github.com/bank-melli/commission/pkg/models"
)

// Producer is the part of *kgo.Client the relay uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Relay polls the event_outbox table and publishes events to Kafka.
type Relay struct {
	db           *gorm.DB
	producer     Producer
	topic        string
	logger       hclog.Logger
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// Config holds configuration for the relay.
type Config struct {
	DB *gorm.DB

	// Brokers are used to build a franz-go client when Producer is nil.
	Brokers  []string
	Producer Producer
	Topic    string

	PollInterval time.Duration // How often to poll the outbox (default: 1s)
	BatchSize    int           // Entries per batch (default: 100)

	Logger hclog.Logger
}

// NewProducer creates a franz-go client tuned for durable, ordered delivery.
func NewProducer(brokers []string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.GzipCompression()),
		kgo.RetryBackoffFn(func(tries int) time.Duration {
			backoff := time.Duration(tries) * 100 * time.Millisecond
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
			return backoff
		}),
		kgo.RequestRetries(10),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return client, nil
}

// New creates a new outbox relay.
func New(cfg Config) (*Relay, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.Producer == nil && len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = 1 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	producer := cfg.Producer
	if producer == nil {
		client, err := NewProducer(cfg.Brokers)
		if err != nil {
			return nil, err
		}
		producer = client
	}

	return &Relay{
		db:           cfg.DB,
		producer:     producer,
		topic:        cfg.Topic,
		logger:       cfg.Logger.Named("outbox-relay"),
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		stopCh:       make(chan struct{}),
	}, nil
}

// Start runs the polling loop until Stop is called or ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("starting outbox relay",
		"poll_interval", r.pollInterval,
		"batch_size", r.batchSize,
		"topic", r.topic,
	)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped by context")
			return ctx.Err()

		case <-r.stopCh:
			r.logger.Info("outbox relay stopped")
			return nil

		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("failed to process outbox batch", "error", err)
			}
		}
	}
}

// Stop stops the polling loop and closes the producer.
func (r *Relay) Stop() {
	close(r.stopCh)
	r.producer.Close()
}

// ProcessBatch publishes one batch of pending entries in id order and reports
// how many were published.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	entries, err := models.FindPendingOutboxEntries(r.db.WithContext(ctx), r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find pending outbox entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	published := 0
	for i := range entries {
		entry := &entries[i]
		if r.deliver(ctx, entry) {
			published++
		}
	}

	r.logger.Debug("processed outbox batch",
		"total", len(entries),
		"published", published,
		"failed", len(entries)-published,
	)
	return published, nil
}

// deliver publishes entry and records the outcome on its row.
func (r *Relay) deliver(ctx context.Context, entry *models.EventOutbox) bool {
	if err := r.publish(ctx, entry); err != nil {
		r.logger.Error("failed to publish outbox entry",
			"outbox_id", entry.ID,
			"event_type", entry.EventType,
			"aggregate_id", entry.AggregateID,
			"error", err,
		)
		if markErr := entry.MarkAsFailed(r.db, err); markErr != nil {
			r.logger.Error("failed to mark outbox entry as failed",
				"outbox_id", entry.ID,
				"error", markErr,
			)
		}
		return false
	}

	if err := entry.MarkAsPublished(r.db); err != nil {
		r.logger.Error("failed to mark outbox entry as published",
			"outbox_id", entry.ID,
			"error", err,
		)
		return false
	}
	return true
}

func (r *Relay) publish(ctx context.Context, entry *models.EventOutbox) error {
	value, err := json.Marshal(NewEvent(entry))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Keyed by aggregate so events of one case stay ordered.
	record := &kgo.Record{
		Topic: r.topic,
		Key:   []byte(entry.AggregateID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(entry.EventType)},
			{Key: "aggregate_type", Value: []byte(entry.AggregateType)},
			{Key: "idempotent_key", Value: []byte(entry.IdempotentKey)},
			{Key: "version", Value: []byte(entry.Version)},
		},
	}

	if err := r.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish to kafka: %w", err)
	}

	r.logger.Trace("published event",
		"outbox_id", entry.ID,
		"event_type", entry.EventType,
		"aggregate_id", entry.AggregateID,
	)
	return nil
}

// CleanupOldEntries removes published entries older than olderThan.
func (r *Relay) CleanupOldEntries(olderThan time.Duration) (int64, error) {
	deleted, err := models.DeleteOldPublishedEntries(r.db, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old outbox entries: %w", err)
	}

	r.logger.Info("cleaned up old outbox entries",
		"deleted", deleted,
		"older_than", olderThan,
	)
	return deleted, nil
}

// RetryFailed resets up to limit failed entries and publishes them again. It
// reports how many were published.
func (r *Relay) RetryFailed(ctx context.Context, limit int) (int, error) {
	failed, err := models.GetFailedOutboxEntries(r.db.WithContext(ctx), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed outbox entries: %w", err)
	}
	if len(failed) == 0 {
		r.logger.Info("no failed outbox entries to retry")
		return 0, nil
	}

	published := 0
	for i := range failed {
		entry := &failed[i]
		if err := entry.Retry(r.db); err != nil {
			r.logger.Error("failed to reset outbox entry to pending",
				"outbox_id", entry.ID,
				"error", err,
			)
			continue
		}
		if r.deliver(ctx, entry) {
			published++
		}
	}

	r.logger.Info("retry completed",
		"attempted", len(failed),
		"published", published,
		"failed", len(failed)-published,
	)
	return published, nil
}

// GetStats returns statistics about the outbox state.
func (r *Relay) GetStats() (Stats, error) {
	return GetStats(r.db)
}
