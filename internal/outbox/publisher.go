package outbox

import (
	"context"

	"github.com/redis/go-redis/v9"

	"solarforge/internal/infra"
)

// Publisher delivers an encoded envelope to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publishes envelopes on Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// LogPublisher writes envelopes to the log. Used when Redis is not configured.
type LogPublisher struct {
	logger infra.Logger
}

func NewLogPublisher(logger infra.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.logger.Info().Str("channel", channel).RawJSON("envelope", payload).Msg("outbox: event")
	return nil
}
