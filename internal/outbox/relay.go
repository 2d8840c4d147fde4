package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
	"solarforge/internal/metrics"
)

const (
	channelPrefix    = "solarforge:"
	anomaliesChannel = "solarforge:anomalies"
	systemChannel    = "solarforge:system"
)

// Envelope is the wire form of a published outbox event.
type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// RelayOptions tunes batch size, polling and retry behaviour.
type RelayOptions struct {
	BatchSize    int
	PollInterval time.Duration
	Lease        time.Duration
	MaxAttempts  int
}

// Relay drains the transactional outbox into a Publisher. Delivery is at
// least once: a crash between publish and mark re-publishes after the lease.
type Relay struct {
	store     domain.OutboxStore
	publisher Publisher
	logger    infra.Logger
	opts      RelayOptions
	clock     func() time.Time
}

func NewRelay(store domain.OutboxStore, publisher Publisher, logger infra.Logger, opts RelayOptions) *Relay {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Lease <= 0 {
		opts.Lease = time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	return &Relay{store: store, publisher: publisher, logger: logger, opts: opts, clock: time.Now}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.opts.PollInterval).Msg("outbox: relay started")
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error().Err(err).Msg("outbox: batch failed")
			}
		}
	}
}

// ProcessBatch claims and publishes one batch. It returns how many events
// were published.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	batch, err := r.store.ClaimOutbox(ctx, r.opts.BatchSize, r.opts.Lease)
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}
	published := 0
	for _, e := range batch {
		if err := r.publish(ctx, e); err != nil {
			metrics.OutboxPublished.WithLabelValues(e.EventType, "failed").Inc()
			r.logger.Warn().Err(err).Str("event_id", e.ID).Str("event_type", e.EventType).Int("attempts", e.Attempts+1).Msg("outbox: publish failed")
			if markErr := r.store.MarkOutboxFailed(ctx, e.ID, err.Error(), r.opts.MaxAttempts); markErr != nil {
				r.logger.Error().Err(markErr).Str("event_id", e.ID).Msg("outbox: mark failed")
			}
			continue
		}
		if err := r.store.MarkOutboxPublished(ctx, e.ID, r.clock().UTC()); err != nil {
			r.logger.Error().Err(err).Str("event_id", e.ID).Msg("outbox: mark published failed")
			continue
		}
		metrics.OutboxPublished.WithLabelValues(e.EventType, "published").Inc()
		published++
	}
	return published, nil
}

func (r *Relay) publish(ctx context.Context, e domain.OutboxEvent) error {
	env := Envelope{
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		OccurredAt:    e.CreatedAt.UTC(),
		Payload:       e.Payload,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return r.publisher.Publish(ctx, Channel(env), payload)
}

// Channel routes an envelope to its pub/sub channel.
func Channel(env Envelope) string {
	switch env.AggregateType {
	case domain.AggregateGalaxy:
		return channelPrefix + "galaxy:" + env.AggregateID
	case domain.AggregateAnomaly:
		return anomaliesChannel
	default:
		return systemChannel
	}
}
