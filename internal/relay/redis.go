package relay

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend relays over a Redis pub/sub channel.
type RedisBackend struct {
	client  *redis.Client
	channel string
}

func NewRedis(ctx context.Context, url, channel string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBackend{client: client, channel: channel}, nil
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Send(ctx context.Context, data []byte) error {
	return b.client.Publish(ctx, b.channel, data).Err()
}

func (b *RedisBackend) Receive(ctx context.Context, handle func([]byte)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			handle([]byte(msg.Payload))
		}
	}
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
