package generation

import (
	"context"
	"log/slog"
	"time"

	"github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// terminalPublishTimeout bounds the final broadcast after the generation
// context may already be canceled.
const terminalPublishTimeout = 5 * time.Second

// Generator abstracts the streaming client for the worker.
type Generator interface {
	Generate(ctx context.Context, chatID, prompt string, opts Options, onFragment func(chunk string)) (string, error)
}

// Job is one accepted prompt to generate a reply for.
type Job struct {
	ChatID string `json:"chat_id"`
	Prompt string `json:"prompt"`
}

// Worker drives a single generation to completion: it streams fragments to
// the conversation's broadcast group, persists the reply on success, and
// always publishes exactly one terminal event, releasing the registry handle
// first so a new prompt is admitted the moment observers see the terminal.
type Worker struct {
	gen      Generator
	repo     repository.ChatRepository
	broker   port.Broker
	registry *Registry
}

func NewWorker(gen Generator, repo repository.ChatRepository, broker port.Broker, registry *Registry) *Worker {
	return &Worker{gen: gen, repo: repo, broker: broker, registry: registry}
}

// Run executes the job under the handle's context. It never returns an error:
// every failure is converted into the terminal event so nothing can leave the
// registry flag set or observers waiting forever.
func (w *Worker) Run(h *Handle, job Job) {
	ctx := h.Context()

	var messageID string
	var failure *string

	defer func() {
		if r := recover(); r != nil {
			slog.Error("generation worker panicked", "chat_id", job.ChatID, "panic", r)
			messageID = ""
			failure = userMessagePtr(ErrKindInternal)
			outcomesTotal.WithLabelValues(string(ErrKindInternal)).Inc()
		}

		w.registry.Finish(h)

		pubCtx, cancel := context.WithTimeout(context.Background(), terminalPublishTimeout)
		defer cancel()
		terminal := chat.NewAICompleteEvent(job.ChatID, messageID, failure)
		if err := w.broker.Publish(pubCtx, job.ChatID, terminal); err != nil {
			slog.Error("failed to publish terminal event", "chat_id", job.ChatID, "error", err)
		}
	}()

	full, err := w.gen.Generate(ctx, job.ChatID, job.Prompt, Options{}, func(chunk string) {
		// Best effort: a failed fragment publish must not abort the
		// generation, or the upstream stream would be left dangling.
		if perr := w.broker.Publish(ctx, job.ChatID, chat.NewAIChunkEvent(job.ChatID, chunk)); perr != nil {
			slog.Error("failed to publish fragment", "chat_id", job.ChatID, "error", perr)
		}
	})
	if err != nil {
		kind := Classify(err)
		slog.Error("generation failed", "chat_id", job.ChatID, "kind", kind, "error", err)
		failure = userMessagePtr(kind)
		outcomesTotal.WithLabelValues(string(kind)).Inc()
		return
	}

	msg, err := chat.NewAssistantMessage(job.ChatID, full)
	if err != nil {
		slog.Error("invalid assistant message", "chat_id", job.ChatID, "error", err)
		failure = userMessagePtr(ErrKindInternal)
		outcomesTotal.WithLabelValues(string(ErrKindInternal)).Inc()
		return
	}

	// Persist on a fresh context: the reply is complete even if the handle
	// was canceled between the last fragment and here.
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := w.repo.SaveAssistantMessage(saveCtx, *msg)
	if err != nil {
		slog.Error("failed to save assistant message", "chat_id", job.ChatID, "error", err)
		failure = userMessagePtr(ErrKindStorage)
		outcomesTotal.WithLabelValues(string(ErrKindStorage)).Inc()
		return
	}

	messageID = id
	outcomesTotal.WithLabelValues("success").Inc()
	slog.Info("generation complete", "chat_id", job.ChatID, "message_id", id, "chars", len(full))
}

func userMessagePtr(k ErrorKind) *string {
	s := k.UserMessage()
	return &s
}
