package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bport "github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
)

type capturingServer struct {
	handlers map[string]qport.Handler
}

func (s *capturingServer) Register(taskType string, h qport.Handler) {
	if s.handlers == nil {
		s.handlers = map[string]qport.Handler{}
	}
	s.handlers[taskType] = h
}

func (s *capturingServer) Run(context.Context) error  { return nil }
func (s *capturingServer) Stop(context.Context) error { return nil }

type countingGenerator struct {
	mu   sync.Mutex
	runs int
}

func (g *countingGenerator) Generate(context.Context, string, string, generation.Options, func(string)) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runs++
	return "reply", nil
}

type nullBroker struct{}

func (nullBroker) Publish(context.Context, string, chat.Event) error { return nil }
func (nullBroker) Subscribe(context.Context, string) (bport.Subscription, error) {
	return nil, errors.New("not implemented")
}
func (nullBroker) Close() error { return nil }

type idRepo struct{}

func (idRepo) CreateConversation(context.Context, chat.Conversation, *chat.Message) (*chat.Conversation, error) {
	return nil, errors.New("not implemented")
}
func (idRepo) GetConversation(context.Context, string) (*chat.Conversation, error) {
	return nil, errors.New("not implemented")
}
func (idRepo) IsOwner(context.Context, string, string) (bool, error)       { return true, nil }
func (idRepo) ListConversations(context.Context, string) ([]chat.Conversation, error) {
	return nil, nil
}
func (idRepo) RenameConversation(context.Context, string, string) error { return nil }
func (idRepo) TogglePin(context.Context, string) (bool, error)          { return false, nil }
func (idRepo) SoftDeleteConversation(context.Context, string) error     { return nil }
func (idRepo) SaveUserMessage(context.Context, chat.Message) (string, error) {
	return "m-user", nil
}
func (idRepo) SaveAssistantMessage(context.Context, chat.Message) (string, error) {
	return "m-assistant", nil
}
func (idRepo) ListMessages(context.Context, string, int, int) ([]chat.Message, error) {
	return nil, nil
}

func newTaskRig(t *testing.T) (*capturingServer, *generation.Registry, *countingGenerator) {
	t.Helper()
	srv := &capturingServer{}
	registry := generation.NewRegistry()
	gen := &countingGenerator{}
	worker := generation.NewWorker(gen, idRepo{}, nullBroker{}, registry)
	RegisterGenerateReplyTask(srv, registry, worker)
	require.Contains(t, srv.handlers, GenerateReplyTaskType)
	return srv, registry, gen
}

func TestGenerateReplyTaskRoundTrip(t *testing.T) {
	srv, registry, gen := newTaskRig(t)

	h, err := registry.Begin("c1")
	require.NoError(t, err)

	tk, err := NewGenerateReplyTask(h, "hello")
	require.NoError(t, err)
	assert.Equal(t, GenerateReplyTaskType, tk.Type)

	var p GenerateReplyPayload
	require.NoError(t, json.Unmarshal(tk.Payload, &p))
	assert.Equal(t, "c1", p.ChatID)
	assert.Equal(t, "hello", p.Prompt)
	assert.Equal(t, h.ID(), p.HandleID)

	require.NoError(t, srv.handlers[GenerateReplyTaskType](context.Background(), tk))
	assert.Equal(t, 1, gen.runs)
	assert.False(t, registry.Active("c1"), "worker run must release the handle")
}

func TestGenerateReplyTaskSkipsStaleHandle(t *testing.T) {
	srv, registry, gen := newTaskRig(t)

	h, err := registry.Begin("c1")
	require.NoError(t, err)
	tk, err := NewGenerateReplyTask(h, "hello")
	require.NoError(t, err)

	// The generation was stopped (and possibly superseded) before the queue
	// delivered the job.
	registry.Stop("c1")
	h2, err := registry.Begin("c1")
	require.NoError(t, err)

	require.NoError(t, srv.handlers[GenerateReplyTaskType](context.Background(), tk))
	assert.Equal(t, 0, gen.runs, "a stale job must not run under a successor handle")
	assert.True(t, registry.Active("c1"), "the successor handle must survive")
	registry.Finish(h2)
}

func TestGenerateReplyTaskSkipsStoppedGeneration(t *testing.T) {
	srv, registry, gen := newTaskRig(t)

	h, err := registry.Begin("c1")
	require.NoError(t, err)
	tk, err := NewGenerateReplyTask(h, "hello")
	require.NoError(t, err)
	registry.Stop("c1")

	require.NoError(t, srv.handlers[GenerateReplyTaskType](context.Background(), tk))
	assert.Equal(t, 0, gen.runs)
}

func TestGenerateReplyTaskMalformedPayloadIsNotRetried(t *testing.T) {
	srv, _, gen := newTaskRig(t)

	err := srv.handlers[GenerateReplyTaskType](context.Background(), qport.Task{
		Type:    GenerateReplyTaskType,
		Payload: []byte("{{{"),
	})
	require.NoError(t, err, "a malformed payload must be dropped, not retried")
	assert.Equal(t, 0, gen.runs)
}
