package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/task"
)

type fakeQueue struct {
	mu         sync.Mutex
	tasks      []qport.Task
	opts       []qport.EnqueueOption
	enqueueErr error
}

func (q *fakeQueue) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return "", q.enqueueErr
	}
	q.tasks = append(q.tasks, t)
	if len(opts) > 0 {
		q.opts = append(q.opts, opts[0])
	}
	return "task-1", nil
}

func (q *fakeQueue) Close() error { return nil }

func TestDispatchGenerationUseCase(t *testing.T) {
	registry := generation.NewRegistry()
	queue := &fakeQueue{}
	uc := NewDispatchGenerationUseCase(registry, queue)

	h, err := uc.Execute(context.Background(), "c1", "hello")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, registry.Active("c1"))

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, task.GenerateReplyTaskType, queue.tasks[0].Type)

	var p task.GenerateReplyPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload, &p))
	assert.Equal(t, "c1", p.ChatID)
	assert.Equal(t, "hello", p.Prompt)
	assert.Equal(t, h.ID(), p.HandleID, "queued job must be pinned to the admitted handle")

	require.Len(t, queue.opts, 1)
	assert.Equal(t, "generation", queue.opts[0].Queue)
	assert.Equal(t, 0, queue.opts[0].MaxRetry)

	registry.Finish(h)
}

func TestDispatchGenerationUseCaseRejectsWhileActive(t *testing.T) {
	registry := generation.NewRegistry()
	queue := &fakeQueue{}
	uc := NewDispatchGenerationUseCase(registry, queue)

	h, err := uc.Execute(context.Background(), "c1", "first")
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), "c1", "second")
	require.ErrorIs(t, err, generation.ErrGenerationActive)
	assert.Len(t, queue.tasks, 1, "rejected prompt must not enqueue a job")

	registry.Finish(h)

	// Admitted again once the first generation finished.
	h2, err := uc.Execute(context.Background(), "c1", "third")
	require.NoError(t, err)
	registry.Finish(h2)
}

func TestDispatchGenerationUseCaseAdmitReservesSlot(t *testing.T) {
	registry := generation.NewRegistry()
	queue := &fakeQueue{}
	uc := NewDispatchGenerationUseCase(registry, queue)

	h, err := uc.Admit("c1")
	require.NoError(t, err)
	assert.True(t, registry.Active("c1"))
	assert.Empty(t, queue.tasks, "admission alone must not enqueue work")

	_, err = uc.Admit("c1")
	require.ErrorIs(t, err, generation.ErrGenerationActive)

	// The caller backs out, e.g. because persisting the prompt failed.
	registry.Finish(h)
	assert.False(t, registry.Active("c1"))

	h2, err := uc.Admit("c1")
	require.NoError(t, err)
	require.NoError(t, uc.Enqueue(context.Background(), h2, "hello"))
	require.Len(t, queue.tasks, 1)

	var p task.GenerateReplyPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload, &p))
	assert.Equal(t, h2.ID(), p.HandleID)

	registry.Finish(h2)
}

func TestDispatchGenerationUseCaseEnqueueFailureReleasesHandle(t *testing.T) {
	registry := generation.NewRegistry()
	queue := &fakeQueue{enqueueErr: errors.New("redis down")}
	uc := NewDispatchGenerationUseCase(registry, queue)

	_, err := uc.Execute(context.Background(), "c1", "hello")
	require.Error(t, err)
	assert.False(t, registry.Active("c1"), "failed dispatch must not leave the conversation locked")
}
