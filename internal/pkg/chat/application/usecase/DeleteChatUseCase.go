package usecase

import (
	"context"
	"fmt"

	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// DeleteChatUseCase soft-deletes a conversation owned by the caller. Deleted
// conversations disappear from listings but their rows remain.
type DeleteChatUseCase struct {
	Repo repository.ChatRepository
}

func NewDeleteChatUseCase(repo repository.ChatRepository) *DeleteChatUseCase {
	return &DeleteChatUseCase{Repo: repo}
}

func (uc *DeleteChatUseCase) Execute(ctx context.Context, chatID, userID string) error {
	owns, err := uc.Repo.IsOwner(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !owns {
		return repository.ErrNotFound
	}

	if err := uc.Repo.SoftDeleteConversation(ctx, chatID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
