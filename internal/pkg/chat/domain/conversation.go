package chat

import "time"

// MaxConversationName caps the display name derived from the first prompt.
const MaxConversationName = 50

// Conversation is a thread of messages owned by exactly one user.
// Deleted is a soft flag; rows are never physically removed.
type Conversation struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	IsPinned  bool      `db:"is_pinned"`
	Deleted   bool      `db:"deleted"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NameFromPrompt derives a conversation display name from the opening prompt.
func NameFromPrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > MaxConversationName {
		return string(runes[:MaxConversationName])
	}
	return prompt
}
