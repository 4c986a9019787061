package usecase

import (
	"context"
	"fmt"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// ListChatsUseCase returns the caller's non-deleted conversations, newest first.
type ListChatsUseCase struct {
	Repo repository.ChatRepository
}

func NewListChatsUseCase(repo repository.ChatRepository) *ListChatsUseCase {
	return &ListChatsUseCase{Repo: repo}
}

func (uc *ListChatsUseCase) Execute(ctx context.Context, ownerID string) ([]chat.Conversation, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner_id is required")
	}
	convs, err := uc.Repo.ListConversations(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return convs, nil
}
