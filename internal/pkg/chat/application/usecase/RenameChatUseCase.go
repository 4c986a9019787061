package usecase

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// RenameChatInput identifies the conversation and its new display name.
type RenameChatInput struct {
	ChatID string
	UserID string
	Name   string
}

// RenameChatUseCase renames a conversation owned by the caller.
type RenameChatUseCase struct {
	Repo repository.ChatRepository
}

func NewRenameChatUseCase(repo repository.ChatRepository) *RenameChatUseCase {
	return &RenameChatUseCase{Repo: repo}
}

func (uc *RenameChatUseCase) Execute(ctx context.Context, in RenameChatInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}

	owns, err := uc.Repo.IsOwner(ctx, in.ChatID, in.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !owns {
		return repository.ErrNotFound
	}

	if err := uc.Repo.RenameConversation(ctx, in.ChatID, name); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
