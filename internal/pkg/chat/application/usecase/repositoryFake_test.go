package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// fakeRepo is an in-memory ChatRepository for usecase tests.
type fakeRepo struct {
	mu       sync.Mutex
	convs    map[string]*chat.Conversation
	messages map[string][]chat.Message
	nextID   int
	failWith error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		convs:    make(map[string]*chat.Conversation),
		messages: make(map[string][]chat.Message),
	}
}

func (r *fakeRepo) newID() string {
	r.nextID++
	return fmt.Sprintf("id-%d", r.nextID)
}

func (r *fakeRepo) CreateConversation(_ context.Context, c chat.Conversation, firstMessage *chat.Message) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	c.ID = r.newID()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	r.convs[c.ID] = &c
	if firstMessage != nil {
		m := *firstMessage
		m.ID = r.newID()
		m.ChatID = c.ID
		r.messages[c.ID] = append(r.messages[c.ID], m)
	}
	out := c
	return &out, nil
}

func (r *fakeRepo) GetConversation(_ context.Context, chatID string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[chatID]
	if !ok || c.Deleted {
		return nil, repository.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *fakeRepo) IsOwner(_ context.Context, chatID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return false, r.failWith
	}
	c, ok := r.convs[chatID]
	return ok && !c.Deleted && c.OwnerID == userID, nil
}

func (r *fakeRepo) ListConversations(_ context.Context, ownerID string) ([]chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []chat.Conversation
	for _, c := range r.convs {
		if c.OwnerID == ownerID && !c.Deleted {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeRepo) RenameConversation(_ context.Context, chatID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[chatID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Name = name
	return nil
}

func (r *fakeRepo) TogglePin(_ context.Context, chatID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[chatID]
	if !ok {
		return false, repository.ErrNotFound
	}
	c.IsPinned = !c.IsPinned
	return c.IsPinned, nil
}

func (r *fakeRepo) SoftDeleteConversation(_ context.Context, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[chatID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Deleted = true
	return nil
}

func (r *fakeRepo) SaveUserMessage(_ context.Context, m chat.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return "", r.failWith
	}
	m.ID = r.newID()
	r.messages[m.ChatID] = append(r.messages[m.ChatID], m)
	return m.ID, nil
}

func (r *fakeRepo) SaveAssistantMessage(_ context.Context, m chat.Message) (string, error) {
	return r.SaveUserMessage(context.Background(), m)
}

func (r *fakeRepo) ListMessages(_ context.Context, chatID string, limit, offset int) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[chatID]
	if offset >= len(msgs) {
		return nil, nil
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return append([]chat.Message(nil), msgs...), nil
}

// seedConversation registers a conversation owned by ownerID and returns its id.
func (r *fakeRepo) seedConversation(ownerID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.newID()
	r.convs[id] = &chat.Conversation{ID: id, OwnerID: ownerID, Name: "seeded"}
	return id
}
