// Package generation coordinates streaming text generation: an Ollama client,
// a per-conversation registry enforcing at most one in-flight generation, and
// the worker that drives a generation to its single terminal event.
package generation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrGenerationActive rejects a prompt while a generation is already running
// for the conversation.
var ErrGenerationActive = errors.New("generation: already active for this conversation")

// Handle is the in-memory cancellable reference to one in-flight generation.
// It is never persisted: a process crash leaves no stuck handle.
type Handle struct {
	id     string
	chatID string
	ctx    context.Context
	cancel context.CancelFunc
}

// ID uniquely identifies this handle; a dispatched job carries it so a
// stale job can never run under a successor generation's handle.
func (h *Handle) ID() string { return h.id }

// Context is canceled when the generation is stopped.
func (h *Handle) Context() context.Context { return h.ctx }

// ChatID returns the conversation this handle belongs to.
func (h *Handle) ChatID() string { return h.chatID }

// Registry tracks the active generation handle per conversation. Admission is
// an atomic per-key check-and-set, so two concurrent Begin calls for the same
// conversation can never both succeed, and unrelated conversations never
// contend on a shared lock.
type Registry struct {
	handles sync.Map // chatID -> *Handle
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Begin registers a new handle for the conversation. It fails with
// ErrGenerationActive when one is already registered.
func (r *Registry) Begin(chatID string) (*Handle, error) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{id: uuid.NewString(), chatID: chatID, ctx: ctx, cancel: cancel}
	if _, loaded := r.handles.LoadOrStore(chatID, h); loaded {
		cancel()
		return nil, ErrGenerationActive
	}
	activeGenerations.Inc()
	return h, nil
}

// Active reports whether a generation is registered for the conversation.
func (r *Registry) Active(chatID string) bool {
	_, ok := r.handles.Load(chatID)
	return ok
}

// Lookup returns the registered handle, or nil when none is active.
func (r *Registry) Lookup(chatID string) *Handle {
	v, ok := r.handles.Load(chatID)
	if !ok {
		return nil
	}
	return v.(*Handle)
}

// Stop cancels and removes whatever handle is registered for the
// conversation. Stopping an absent or finished generation is a no-op.
func (r *Registry) Stop(chatID string) {
	v, loaded := r.handles.LoadAndDelete(chatID)
	if !loaded {
		return
	}
	v.(*Handle).cancel()
	activeGenerations.Dec()
	slog.Info("generation stopped", "chat_id", chatID)
}

// Finish removes exactly this handle. It is idempotent and safe against a
// newer generation having replaced the entry: observers of the same terminal
// event may all call it, only the first removal takes effect.
func (r *Registry) Finish(h *Handle) {
	if h == nil {
		return
	}
	if r.handles.CompareAndDelete(h.chatID, h) {
		h.cancel()
		activeGenerations.Dec()
	}
}

// StopAll cancels every in-flight generation. Used during shutdown.
func (r *Registry) StopAll() {
	r.handles.Range(func(key, _ any) bool {
		r.Stop(key.(string))
		return true
	})
}
