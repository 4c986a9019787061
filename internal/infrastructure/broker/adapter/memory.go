package adapter

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
)

const subscriptionBuffer = 256

// MemoryBroker is a single-process broker. Publish holds the broker lock for
// the whole fan-out, so concurrent publishers to the same group are serialized
// and every subscriber observes events in the same relative order.
type MemoryBroker struct {
	mu     sync.Mutex
	groups map[string]map[*memorySubscription]struct{}
	closed bool
}

var _ port.Broker = (*MemoryBroker)(nil)

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{groups: make(map[string]map[*memorySubscription]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, chatID string, e chat.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("broker: closed")
	}
	for sub := range b.groups[chatID] {
		select {
		case sub.events <- e:
		default:
			// Slow subscriber: drop rather than stall the group.
			slog.Warn("memory broker dropped event", "group", port.GroupName(chatID), "kind", e.Kind())
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, chatID string) (port.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("broker: closed")
	}
	sub := &memorySubscription{
		broker: b,
		chatID: chatID,
		events: make(chan chat.Event, subscriptionBuffer),
	}
	group := b.groups[chatID]
	if group == nil {
		group = make(map[*memorySubscription]struct{})
		b.groups[chatID] = group
	}
	group[sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for chatID, group := range b.groups {
		for sub := range group {
			close(sub.events)
			sub.detached = true
		}
		delete(b.groups, chatID)
	}
	return nil
}

type memorySubscription struct {
	broker   *MemoryBroker
	chatID   string
	events   chan chat.Event
	detached bool
}

func (s *memorySubscription) Events() <-chan chat.Event { return s.events }

func (s *memorySubscription) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if s.detached {
		return nil
	}
	s.detached = true
	if group, ok := s.broker.groups[s.chatID]; ok {
		delete(group, s)
		if len(group) == 0 {
			delete(s.broker.groups, s.chatID)
		}
	}
	close(s.events)
	return nil
}
