package repository

import (
	"context"
	"errors"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
)

// ErrNotFound signals a missing (or soft-deleted) conversation.
var ErrNotFound = errors.New("repository: conversation not found")

// ChatRepository defines persistence operations for the chat domain.
//
// SaveUserMessage must lock the parent conversation row for the duration of
// the insert to serialize concurrent submissions against the same
// conversation. SaveAssistantMessage must commit the generated reply in a
// single transaction.
type ChatRepository interface {
	// CreateConversation persists a new conversation and, when firstMessage is
	// non-nil, its opening user message in the same transaction.
	CreateConversation(ctx context.Context, c chat.Conversation, firstMessage *chat.Message) (*chat.Conversation, error)

	// GetConversation returns a non-deleted conversation or ErrNotFound.
	GetConversation(ctx context.Context, chatID string) (*chat.Conversation, error)

	// IsOwner reports whether userID owns the non-deleted conversation.
	IsOwner(ctx context.Context, chatID string, userID string) (bool, error)

	// ListConversations returns the owner's non-deleted conversations, newest first.
	ListConversations(ctx context.Context, ownerID string) ([]chat.Conversation, error)

	RenameConversation(ctx context.Context, chatID string, name string) error

	// TogglePin flips the pinned flag and returns the new value.
	TogglePin(ctx context.Context, chatID string) (bool, error)

	// SoftDeleteConversation sets the deleted flag; rows are never removed.
	SoftDeleteConversation(ctx context.Context, chatID string) error

	// SaveUserMessage inserts a user message under a FOR UPDATE lock on the
	// conversation row and returns the persisted message id.
	SaveUserMessage(ctx context.Context, m chat.Message) (string, error)

	// SaveAssistantMessage inserts a generated reply (nil sender) in one
	// transaction and returns the persisted message id.
	SaveAssistantMessage(ctx context.Context, m chat.Message) (string, error)

	// ListMessages returns a conversation's messages in creation order.
	ListMessages(ctx context.Context, chatID string, limit int, offset int) ([]chat.Message, error)
}
