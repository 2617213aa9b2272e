// Package outbox relays rows from the transactional outbox table to Kafka.
//
// Writers insert into outbox inside their business transaction (see
// audit/store/postgres). The relay claims unpublished rows with
// FOR UPDATE SKIP LOCKED, produces them, and marks them published in the
// same transaction, so a failed produce leaves the rows for the next poll
// and several relay instances never publish the same batch concurrently.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Entry is one outbox row.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Source hands out batches of unpublished entries. publish runs while the
// batch is claimed; entries are marked published only if it returns nil.
type Source interface {
	Process(ctx context.Context, limit int, publish func(ctx context.Context, entries []Entry) error) (int, error)
}

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Relay polls a Source and produces its entries to a Kafka topic.
type Relay struct {
	source    Source
	producer  Producer
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Relay)

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// NewRelay builds a relay producing to topic.
func NewRelay(source Source, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		producer:  producer,
		topic:     topic,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. A full batch triggers an immediate
// follow-up poll instead of waiting for the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
		}
		if err == nil && n == r.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce relays at most one batch and returns how many entries were published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := r.source.Process(ctx, r.batchSize, r.publish)
	if err != nil {
		r.metrics.IncBatchFailures()
		return 0, err
	}
	r.metrics.AddPublished(n)
	r.metrics.ObserveBatchDuration(time.Since(start).Seconds())
	return n, nil
}

func (r *Relay) publish(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_id", Value: []byte(e.ID.String())},
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "aggregate_type", Value: []byte(e.AggregateType)},
			},
			Timestamp: e.CreatedAt,
		})
	}
	return r.producer.ProduceSync(ctx, records...).FirstErr()
}
