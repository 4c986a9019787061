package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
)

func TestStartChatUseCase(t *testing.T) {
	repo := newFakeRepo()
	uc := NewStartChatUseCase(repo, 100)

	conv, prompt, err := uc.Execute(context.Background(), StartChatInput{
		OwnerID: "u1",
		Prompt:  "  help me plan a trip  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "help me plan a trip", prompt)
	assert.Equal(t, "u1", conv.OwnerID)
	assert.Equal(t, "help me plan a trip", conv.Name)

	// The opening prompt is persisted with the conversation.
	msgs, err := repo.ListMessages(context.Background(), conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "help me plan a trip", msgs[0].Content)
	require.NotNil(t, msgs[0].Sender)
	assert.Equal(t, "u1", *msgs[0].Sender)
}

func TestStartChatUseCaseNameTruncation(t *testing.T) {
	repo := newFakeRepo()
	uc := NewStartChatUseCase(repo, 1000)

	long := strings.Repeat("p", 200)
	conv, _, err := uc.Execute(context.Background(), StartChatInput{OwnerID: "u1", Prompt: long})
	require.NoError(t, err)
	assert.Len(t, []rune(conv.Name), chat.MaxConversationName)
}

func TestStartChatUseCaseRejectsInvalidPrompt(t *testing.T) {
	repo := newFakeRepo()
	uc := NewStartChatUseCase(repo, 10)

	_, _, err := uc.Execute(context.Background(), StartChatInput{OwnerID: "u1", Prompt: "  "})
	require.ErrorIs(t, err, chat.ErrEmptyMessage)

	_, _, err = uc.Execute(context.Background(), StartChatInput{OwnerID: "u1", Prompt: strings.Repeat("a", 11)})
	require.ErrorIs(t, err, chat.ErrMessageTooLong)

	_, _, err = uc.Execute(context.Background(), StartChatInput{OwnerID: "", Prompt: "hello"})
	require.Error(t, err)

	assert.Empty(t, repo.convs, "no conversation may exist after a rejected start")
}
