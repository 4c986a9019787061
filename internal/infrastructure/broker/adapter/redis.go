// Package adapter provides the concrete broadcast transports behind the
// broker port: Redis pub/sub, NATS core subjects, and an in-process fallback.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
)

// RedisBroker fans events out through Redis pub/sub, one channel per
// conversation group. Redis delivers per-channel messages in publish order,
// which carries the broker ordering guarantee across nodes.
type RedisBroker struct {
	client *redis.Client
}

var _ port.Broker = (*RedisBroker)(nil)

// NewRedisBroker connects to Redis at the given URL and verifies it with a ping.
func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis broker: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis broker: ping: %w", err)
	}
	return &RedisBroker{client: c}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, chatID string, e chat.Event) error {
	payload, err := chat.EncodeEvent(e)
	if err != nil {
		return fmt.Errorf("redis broker: encode: %w", err)
	}
	return b.client.Publish(ctx, port.GroupName(chatID), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, chatID string) (port.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, port.GroupName(chatID))
	// Wait for the subscription to be confirmed so no events published after
	// Subscribe returns are missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis broker: subscribe: %w", err)
	}

	sub := &redisSubscription{pubsub: pubsub, events: make(chan chat.Event, subscriptionBuffer)}
	go sub.pump(chatID)
	return sub, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan chat.Event
}

func (s *redisSubscription) Events() <-chan chat.Event { return s.events }

func (s *redisSubscription) Close() error {
	// Closing the PubSub ends the pump's range loop, which closes events.
	return s.pubsub.Close()
}

func (s *redisSubscription) pump(chatID string) {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		e, err := chat.DecodeEvent([]byte(msg.Payload))
		if err != nil {
			slog.Warn("redis broker dropped undecodable event", "group", port.GroupName(chatID), "error", err)
			continue
		}
		s.events <- e
	}
}
