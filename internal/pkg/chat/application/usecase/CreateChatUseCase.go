package usecase

import (
	"context"
	"fmt"
	"strings"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// CreateChatInput carries the data to open an empty conversation.
type CreateChatInput struct {
	OwnerID string
	Name    string
}

// CreateChatUseCase creates a conversation with no messages.
// One class per use case (own file).
type CreateChatUseCase struct {
	Repo repository.ChatRepository
}

func NewCreateChatUseCase(repo repository.ChatRepository) *CreateChatUseCase {
	return &CreateChatUseCase{Repo: repo}
}

func (uc *CreateChatUseCase) Execute(ctx context.Context, in CreateChatInput) (*chat.Conversation, error) {
	if in.OwnerID == "" {
		return nil, fmt.Errorf("owner_id is required")
	}

	conv := chat.Conversation{
		OwnerID: in.OwnerID,
		Name:    chat.NameFromPrompt(strings.TrimSpace(in.Name)),
	}
	created, err := uc.Repo.CreateConversation(ctx, conv, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return created, nil
}
