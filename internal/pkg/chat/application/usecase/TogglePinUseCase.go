package usecase

import (
	"context"
	"fmt"

	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// TogglePinUseCase flips a conversation's pinned flag and reports the new state.
type TogglePinUseCase struct {
	Repo repository.ChatRepository
}

func NewTogglePinUseCase(repo repository.ChatRepository) *TogglePinUseCase {
	return &TogglePinUseCase{Repo: repo}
}

func (uc *TogglePinUseCase) Execute(ctx context.Context, chatID, userID string) (bool, error) {
	owns, err := uc.Repo.IsOwner(ctx, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !owns {
		return false, repository.ErrNotFound
	}

	pinned, err := uc.Repo.TogglePin(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return pinned, nil
}
