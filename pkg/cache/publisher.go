package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher sends payloads to Redis pub/sub channels.
type Publisher struct {
	client *redis.Client
}

// NewPublisher wraps a Redis client. A nil client turns Publish into a no-op.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish writes payload to channel.
func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if p == nil || p.client == nil {
		return nil
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
