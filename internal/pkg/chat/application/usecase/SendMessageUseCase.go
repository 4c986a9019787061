package usecase

import (
	"context"
	"fmt"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to persist a user prompt.
type SendMessageInput struct {
	ChatID   string
	SenderID string
	Content  string
}

// SendMessageUseCase validates and persists a user message. The repository
// serializes concurrent writers by locking the conversation row for the
// duration of the insert.
type SendMessageUseCase struct {
	Repo             repository.ChatRepository
	MaxMessageLength int
}

func NewSendMessageUseCase(repo repository.ChatRepository, maxMessageLength int) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, MaxMessageLength: maxMessageLength}
}

// Execute persists a new user message for a conversation owned by the sender.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	msg, err := chat.NewUserMessage(in.ChatID, in.SenderID, in.Content, uc.MaxMessageLength)
	if err != nil {
		return nil, err
	}

	owns, err := uc.Repo.IsOwner(ctx, in.ChatID, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !owns {
		return nil, repository.ErrNotFound
	}

	id, err := uc.Repo.SaveUserMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id
	return msg, nil
}
