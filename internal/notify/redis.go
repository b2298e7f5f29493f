package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DepositChannel is the pub/sub channel confirmed deposits are published to.
const DepositChannel = "chain:deposits"

// RedisNotifier publishes deposit events over Redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedis creates a notifier on an existing Redis client.
func NewRedis(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// PublishDeposit publishes the event as JSON.
func (n *RedisNotifier) PublishDeposit(ctx context.Context, event *DepositEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal deposit event: %w", err)
	}
	if err := n.client.Publish(ctx, DepositChannel, data).Err(); err != nil {
		return fmt.Errorf("publish deposit %s: %w", event.Hash, err)
	}
	return nil
}
