package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisDispatcher publishes events over Redis pub/sub. Subscribers (the
// websocket hub, possibly on another instance) receive them on the
// per-user channel; with no subscriber the publish is a no-op.
type RedisDispatcher struct {
	client *redis.Client
}

// NewRedisClient parses a redis URL, connects and verifies the connection
// with a ping.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL cannot be empty")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRedisDispatcher(client *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{client: client}
}

func (d *RedisDispatcher) NotifyContactAdded(ctx context.Context, targetUnique string, event ContactAddedEvent) error {
	payload, err := json.Marshal(Envelope{Type: EventContactAdded, Message: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := d.client.Publish(ctx, ChannelForUser(targetUnique), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", ChannelForUser(targetUnique), err)
	}

	return nil
}
