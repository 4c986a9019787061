// Package port defines the broadcast channel contract: a publish/subscribe
// transport keyed by conversation id over which generation workers and
// connection handlers exchange events.
package port

import (
	"context"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
)

// GroupName maps a conversation id to its broadcast group name.
func GroupName(chatID string) string {
	return "chat_" + chatID
}

// Subscription is one membership in a conversation's broadcast group.
// Events are delivered in publish order for the group. The channel is closed
// by Close and by broker shutdown.
type Subscription interface {
	Events() <-chan chat.Event
	Close() error
}

// Broker fans events out to every live subscription of a conversation.
// Implementations must be safe for concurrent use. Publish is fire-and-forget
// from the caller's perspective: a delivery failure to one subscriber must not
// affect others.
type Broker interface {
	Publish(ctx context.Context, chatID string, e chat.Event) error
	Subscribe(ctx context.Context, chatID string) (Subscription, error)
	Close() error
}
