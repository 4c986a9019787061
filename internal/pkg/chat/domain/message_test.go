package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		maxLen  int
		want    string
		wantErr error
	}{
		{name: "plain text", input: "hello", maxLen: 100, want: "hello"},
		{name: "trims whitespace", input: "  hello  ", maxLen: 100, want: "hello"},
		{name: "empty", input: "", maxLen: 100, wantErr: ErrEmptyMessage},
		{name: "only whitespace", input: " \t\n ", maxLen: 100, wantErr: ErrEmptyMessage},
		{name: "exactly max length accepted", input: strings.Repeat("a", 10), maxLen: 10, want: strings.Repeat("a", 10)},
		{name: "one over max rejected", input: strings.Repeat("a", 11), maxLen: 10, wantErr: ErrMessageTooLong},
		{name: "limit counts runes not bytes", input: strings.Repeat("я", 10), maxLen: 10, want: strings.Repeat("я", 10)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidatePrompt(tc.input, tc.maxLen)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewUserMessage(t *testing.T) {
	msg, err := NewUserMessage("c1", "u1", "  hi there  ", 100)
	require.NoError(t, err)
	assert.Equal(t, "c1", msg.ChatID)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "u1", *msg.Sender)
	assert.Equal(t, "hi there", msg.Content)
	assert.Equal(t, MessageTypeText, msg.MsgType)

	_, err = NewUserMessage("", "u1", "hi", 100)
	require.Error(t, err)

	_, err = NewUserMessage("c1", "u1", "   ", 100)
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestNewAssistantMessage(t *testing.T) {
	msg, err := NewAssistantMessage("c1", "generated reply")
	require.NoError(t, err)
	assert.Nil(t, msg.Sender)
	assert.Equal(t, "generated reply", msg.Content)

	_, err = NewAssistantMessage("c1", "")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestNameFromPrompt(t *testing.T) {
	assert.Equal(t, "short", NameFromPrompt("short"))

	long := strings.Repeat("x", MaxConversationName+20)
	got := NameFromPrompt(long)
	assert.Len(t, []rune(got), MaxConversationName)

	// Truncation must not split a multi-byte rune.
	cyrillic := strings.Repeat("ж", MaxConversationName+5)
	got = NameFromPrompt(cyrillic)
	assert.Equal(t, strings.Repeat("ж", MaxConversationName), got)
}
