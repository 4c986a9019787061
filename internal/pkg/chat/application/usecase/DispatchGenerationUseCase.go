package usecase

import (
	"context"
	"fmt"

	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/task"
)

// DispatchGenerationUseCase admits a generation for a conversation and queues
// the work. Admission is atomic: a second dispatch for the same conversation
// while one is running returns generation.ErrGenerationActive.
type DispatchGenerationUseCase struct {
	Registry *generation.Registry
	Queue    qport.Client
}

func NewDispatchGenerationUseCase(registry *generation.Registry, queue qport.Client) *DispatchGenerationUseCase {
	return &DispatchGenerationUseCase{Registry: registry, Queue: queue}
}

// Admit reserves the conversation's generation slot without queueing work.
// Callers that need side effects between admission and enqueueing (persisting
// the prompt, echoing it) admit first so a rejection stays side-effect free,
// and release the handle themselves if those side effects fail.
func (uc *DispatchGenerationUseCase) Admit(chatID string) (*generation.Handle, error) {
	return uc.Registry.Begin(chatID)
}

// Enqueue queues the work for an admitted handle, releasing it on failure.
func (uc *DispatchGenerationUseCase) Enqueue(ctx context.Context, h *generation.Handle, prompt string) error {
	t, err := task.NewGenerateReplyTask(h, prompt)
	if err != nil {
		uc.Registry.Finish(h)
		return fmt.Errorf("build generation task: %w", err)
	}

	// A generation attempt is all-or-nothing; retries would race a newer
	// admission for the same conversation.
	if _, err := uc.Queue.Enqueue(ctx, t, qport.EnqueueOption{Queue: "generation", MaxRetry: 0}); err != nil {
		uc.Registry.Finish(h)
		return fmt.Errorf("enqueue generation: %w", err)
	}
	return nil
}

func (uc *DispatchGenerationUseCase) Execute(ctx context.Context, chatID, prompt string) (*generation.Handle, error) {
	h, err := uc.Admit(chatID)
	if err != nil {
		return nil, err
	}
	if err := uc.Enqueue(ctx, h, prompt); err != nil {
		return nil, err
	}
	return h, nil
}
