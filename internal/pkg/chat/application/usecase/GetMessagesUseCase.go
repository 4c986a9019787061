package usecase

import (
	"context"
	"fmt"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// GetMessagesInput carries parameters to fetch a conversation's messages.
type GetMessagesInput struct {
	ChatID string
	UserID string
	Limit  int
	Offset int
}

// GetMessagesUseCase fetches messages for a conversation the caller owns, in
// creation order. One class per use case (own file).
type GetMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessagesUseCase(repo repository.ChatRepository) *GetMessagesUseCase {
	return &GetMessagesUseCase{Repo: repo}
}

func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) ([]chat.Message, error) {
	if in.ChatID == "" {
		return nil, fmt.Errorf("chat_id is required")
	}

	owns, err := uc.Repo.IsOwner(ctx, in.ChatID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !owns {
		return nil, repository.ErrNotFound
	}

	msgs, err := uc.Repo.ListMessages(ctx, in.ChatID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
