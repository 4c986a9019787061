package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind enumerates every frame exchanged over the broadcast channel and
// the client connection. The set is closed: decoding rejects unknown kinds.
type EventKind string

const (
	KindConnectionEstablished EventKind = "connection_established"
	KindUserMessage           EventKind = "user_message"
	KindAIChunk               EventKind = "ai_chunk"
	KindAIComplete            EventKind = "ai_complete"
	KindError                 EventKind = "error"
)

// Event is one frame of the streaming protocol. Concrete types carry their
// kind in the wire payload so a frame can be relayed to clients verbatim.
type Event interface {
	Kind() EventKind
}

// ConnectionEstablished is sent to a newly connected client only, never
// broadcast.
type ConnectionEstablished struct {
	Type    EventKind `json:"type"`
	Message string    `json:"message"`
	ChatID  string    `json:"chat_id"`
	UserID  string    `json:"user_id"`
}

func NewConnectionEstablished(chatID, userID string) ConnectionEstablished {
	return ConnectionEstablished{
		Type:    KindConnectionEstablished,
		Message: "Connected to chat",
		ChatID:  chatID,
		UserID:  userID,
	}
}

func (ConnectionEstablished) Kind() EventKind { return KindConnectionEstablished }

// UserMessageEvent echoes a persisted user message to the broadcast group.
type UserMessageEvent struct {
	Type      EventKind `json:"type"`
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewUserMessageEvent(m Message) UserMessageEvent {
	userID := ""
	if m.Sender != nil {
		userID = *m.Sender
	}
	return UserMessageEvent{
		Type:      KindUserMessage,
		MessageID: m.ID,
		Content:   m.Content,
		UserID:    userID,
		ChatID:    m.ChatID,
		Timestamp: m.CreatedAt,
	}
}

func (UserMessageEvent) Kind() EventKind { return KindUserMessage }

// AIChunkEvent carries one incremental fragment of generated text.
type AIChunkEvent struct {
	Type   EventKind `json:"type"`
	Chunk  string    `json:"chunk"`
	ChatID string    `json:"chat_id"`
}

func NewAIChunkEvent(chatID, chunk string) AIChunkEvent {
	return AIChunkEvent{Type: KindAIChunk, Chunk: chunk, ChatID: chatID}
}

func (AIChunkEvent) Kind() EventKind { return KindAIChunk }

// AICompleteEvent is the terminal event of a generation: exactly one is
// published per started generation. MessageID is empty when Error is set.
type AICompleteEvent struct {
	Type      EventKind `json:"type"`
	MessageID string    `json:"message_id"`
	ChatID    string    `json:"chat_id"`
	Error     *string   `json:"error"`
}

func NewAICompleteEvent(chatID, messageID string, genErr *string) AICompleteEvent {
	return AICompleteEvent{Type: KindAIComplete, MessageID: messageID, ChatID: chatID, Error: genErr}
}

func (AICompleteEvent) Kind() EventKind { return KindAIComplete }

// ErrorEvent reports a per-message failure to one client.
type ErrorEvent struct {
	Type    EventKind `json:"type"`
	Message string    `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: KindError, Message: message}
}

func (ErrorEvent) Kind() EventKind { return KindError }

// EncodeEvent marshals an event into its wire frame.
func EncodeEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent unmarshals a wire frame into its concrete event type. The
// switch is exhaustive over EventKind; unknown kinds are an error.
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type EventKind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("chat: decode event header: %w", err)
	}

	switch head.Type {
	case KindConnectionEstablished:
		var e ConnectionEstablished
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case KindUserMessage:
		var e UserMessageEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case KindAIChunk:
		var e AIChunkEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case KindAIComplete:
		var e AICompleteEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case KindError:
		var e ErrorEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("chat: unknown event kind %q", head.Type)
	}
}
