package usecase

import (
	"context"
	"fmt"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// StartChatInput carries the opening prompt for a brand-new conversation.
type StartChatInput struct {
	OwnerID string
	Prompt  string
}

// StartChatUseCase creates a conversation named after the prompt and persists
// the prompt as its first message, atomically. Dispatching the generation is
// the caller's next step.
type StartChatUseCase struct {
	Repo             repository.ChatRepository
	MaxMessageLength int
}

func NewStartChatUseCase(repo repository.ChatRepository, maxMessageLength int) *StartChatUseCase {
	return &StartChatUseCase{Repo: repo, MaxMessageLength: maxMessageLength}
}

func (uc *StartChatUseCase) Execute(ctx context.Context, in StartChatInput) (*chat.Conversation, string, error) {
	if in.OwnerID == "" {
		return nil, "", fmt.Errorf("owner_id is required")
	}
	prompt, err := chat.ValidatePrompt(in.Prompt, uc.MaxMessageLength)
	if err != nil {
		return nil, "", err
	}

	sender := in.OwnerID
	first := chat.Message{
		Sender:  &sender,
		Content: prompt,
		MsgType: chat.MessageTypeText,
	}
	conv := chat.Conversation{
		OwnerID: in.OwnerID,
		Name:    chat.NameFromPrompt(prompt),
	}

	created, err := uc.Repo.CreateConversation(ctx, conv, &first)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return created, prompt, nil
}
