package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
)

// NATSBroker fans events out over NATS core subjects, one subject per
// conversation group. NATS invokes a subscription's handler sequentially, so
// per-group ordering holds for each subscriber.
type NATSBroker struct {
	conn *nats.Conn
}

var _ port.Broker = (*NATSBroker)(nil)

func NewNATSBroker(url string) (*NATSBroker, error) {
	nc, err := nats.Connect(url, nats.Name("dreadnought-broker"))
	if err != nil {
		return nil, fmt.Errorf("nats broker: connect: %w", err)
	}
	return &NATSBroker{conn: nc}, nil
}

func (b *NATSBroker) Publish(_ context.Context, chatID string, e chat.Event) error {
	payload, err := chat.EncodeEvent(e)
	if err != nil {
		return fmt.Errorf("nats broker: encode: %w", err)
	}
	return b.conn.Publish(port.GroupName(chatID), payload)
}

func (b *NATSBroker) Subscribe(_ context.Context, chatID string) (port.Subscription, error) {
	sub := &natsSubscription{events: make(chan chat.Event, subscriptionBuffer)}
	group := port.GroupName(chatID)

	inner, err := b.conn.Subscribe(group, func(msg *nats.Msg) {
		e, err := chat.DecodeEvent(msg.Data)
		if err != nil {
			slog.Warn("nats broker dropped undecodable event", "group", group, "error", err)
			return
		}
		sub.deliver(e, group)
	})
	if err != nil {
		return nil, fmt.Errorf("nats broker: subscribe: %w", err)
	}
	sub.inner = inner
	return sub, nil
}

func (b *NATSBroker) Close() error {
	b.conn.Close()
	return nil
}

type natsSubscription struct {
	inner  *nats.Subscription
	events chan chat.Event

	mu     sync.Mutex
	closed bool
}

func (s *natsSubscription) Events() <-chan chat.Event { return s.events }

func (s *natsSubscription) deliver(e chat.Event, group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	default:
		slog.Warn("nats broker dropped event", "group", group, "kind", e.Kind())
	}
}

func (s *natsSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.inner.Unsubscribe()
	close(s.events)
	return err
}
