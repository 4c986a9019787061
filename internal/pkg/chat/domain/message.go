package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessageType tags message content. Only text is produced today.
type MessageType string

const (
	MessageTypeText MessageType = "text"
)

var (
	ErrEmptyMessage = errors.New("chat: message cannot be empty")
	// ErrMessageTooLong is wrapped with the configured limit by ValidatePrompt.
	ErrMessageTooLong = errors.New("chat: message too long")
)

// Message is one persisted utterance in a conversation. A nil Sender marks a
// generated reply. Immutable once created except for the edited flag.
type Message struct {
	ID        string      `db:"id"`
	ChatID    string      `db:"chat_id"`
	Sender    *string     `db:"sender_id"`
	Content   string      `db:"content"`
	MsgType   MessageType `db:"message_type"`
	IsEdited  bool        `db:"is_edited"`
	CreatedAt time.Time   `db:"created_at"`
}

// ValidatePrompt trims the prompt and enforces the configured length bound.
// A prompt of exactly maxLen runes is accepted.
func ValidatePrompt(prompt string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}
	if len([]rune(trimmed)) > maxLen {
		return "", fmt.Errorf("%w (max %d characters)", ErrMessageTooLong, maxLen)
	}
	return trimmed, nil
}

// NewUserMessage builds a validated user message ready to persist.
func NewUserMessage(chatID, senderID, content string, maxLen int) (*Message, error) {
	if chatID == "" || senderID == "" {
		return nil, errors.New("chat: chat_id and sender_id are required")
	}
	trimmed, err := ValidatePrompt(content, maxLen)
	if err != nil {
		return nil, err
	}
	return &Message{
		ChatID:    chatID,
		Sender:    &senderID,
		Content:   trimmed,
		MsgType:   MessageTypeText,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewAssistantMessage builds a generated reply with no sender.
func NewAssistantMessage(chatID, content string) (*Message, error) {
	if chatID == "" {
		return nil, errors.New("chat: chat_id is required")
	}
	if content == "" {
		return nil, ErrEmptyMessage
	}
	return &Message{
		ChatID:    chatID,
		Sender:    nil,
		Content:   content,
		MsgType:   MessageTypeText,
		CreatedAt: time.Now().UTC(),
	}, nil
}
