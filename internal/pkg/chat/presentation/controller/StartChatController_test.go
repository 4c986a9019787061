package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v3spiary/dreadnought/internal/infrastructure/auth"
	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/usecase"
	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
)

// startRepo extends the socket fake with conversation creation.
type startRepo struct {
	*socketRepo
}

func (r *startRepo) CreateConversation(_ context.Context, c chat.Conversation, first *chat.Message) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = "c-new"
	r.owners[c.ID] = c.OwnerID
	if first != nil {
		m := *first
		m.ChatID = c.ID
		r.nextID++
		m.ID = fmt.Sprintf("m-%d", r.nextID)
		r.saved = append(r.saved, m)
	}
	return &c, nil
}

// recordQueue counts enqueued jobs, optionally failing every call.
type recordQueue struct {
	mu         sync.Mutex
	enqueued   int
	enqueueErr error
}

func (q *recordQueue) Enqueue(context.Context, qport.Task, ...qport.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return "", q.enqueueErr
	}
	q.enqueued++
	return "task-1", nil
}

func (q *recordQueue) Close() error { return nil }

func newStartChatRig(t *testing.T, queue qport.Client) (*gin.Engine, *startRepo, *generation.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &startRepo{socketRepo: newSocketRepo()}
	registry := generation.NewRegistry()
	ctl := &StartChatController{
		startUC:    usecase.NewStartChatUseCase(repo, 100),
		dispatchUC: usecase.NewDispatchGenerationUseCase(registry, queue),
	}

	engine := gin.New()
	authn := auth.NewAuthenticator(testSecret)
	engine.POST("/chats/start", authn.Middleware(), ctl.Handle())
	return engine, repo, registry
}

func postStartChat(t *testing.T, engine *gin.Engine, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chats/start", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestStartChatCreatesAndDispatches(t *testing.T) {
	queue := &recordQueue{}
	engine, repo, registry := newStartChatRig(t, queue)

	w := postStartChat(t, engine, signToken(t, "u1"), `{"message": "hello world"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "c-new", resp["chat_id"])
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Chat created. Generating a response...", resp["message"])
	assert.Equal(t, "/service/chat/c-new", resp["redirect_url"])

	assert.True(t, registry.Active("c-new"))
	assert.Equal(t, 1, queue.enqueued)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "hello world", repo.saved[0].Content)
}

func TestStartChatReportsFailedDispatch(t *testing.T) {
	queue := &recordQueue{enqueueErr: fmt.Errorf("redis down")}
	engine, repo, registry := newStartChatRig(t, queue)

	w := postStartChat(t, engine, signToken(t, "u1"), `{"message": "hello world"}`)
	require.Equal(t, http.StatusCreated, w.Code, "the conversation itself was created")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "c-new", resp["chat_id"])
	assert.Equal(t, "Chat created, but response generation could not be started. Send your message again from the chat.", resp["message"])

	assert.False(t, registry.Active("c-new"), "failed dispatch must release the handle")
	require.Len(t, repo.saved, 1, "the first message is still persisted")
}

func TestStartChatRejectsUnauthenticated(t *testing.T) {
	engine, _, _ := newStartChatRig(t, &recordQueue{})

	w := postStartChat(t, engine, "", `{"message": "hello"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartChatRejectsEmptyPrompt(t *testing.T) {
	queue := &recordQueue{}
	engine, repo, _ := newStartChatRig(t, queue)

	w := postStartChat(t, engine, signToken(t, "u1"), `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.saved)
	assert.Zero(t, queue.enqueued)
}
