package task

import (
	"context"
	"encoding/json"
	"log/slog"

	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
)

// GenerateReplyTaskType is the queue task name for running one generation.
const GenerateReplyTaskType = "chat:generate_reply"

// GenerateReplyPayload is the JSON payload transported via the queue. The
// handle id pins the job to the registry entry created at admission time.
type GenerateReplyPayload struct {
	ChatID   string `json:"chatId"`
	Prompt   string `json:"prompt"`
	HandleID string `json:"handleId"`
}

// NewGenerateReplyTask builds the queue task for an admitted prompt.
func NewGenerateReplyTask(h *generation.Handle, prompt string) (qport.Task, error) {
	payload := GenerateReplyPayload{ChatID: h.ChatID(), Prompt: prompt, HandleID: h.ID()}
	b, err := json.Marshal(payload)
	if err != nil {
		return qport.Task{}, err
	}
	return qport.Task{Type: GenerateReplyTaskType, Payload: b}, nil
}

// RegisterGenerateReplyTask binds the generation handler to the queue server.
// A job whose handle is gone (stopped or superseded before the job was picked
// up) never ran, so it returns without publishing anything.
func RegisterGenerateReplyTask(srv qport.Server, registry *generation.Registry, worker *generation.Worker) {
	srv.Register(GenerateReplyTaskType, func(ctx context.Context, t qport.Task) error {
		var p GenerateReplyPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// Malformed payload: retrying cannot help.
			slog.Error("malformed generation payload", "error", err)
			return nil
		}

		h := registry.Lookup(p.ChatID)
		if h == nil || h.ID() != p.HandleID {
			slog.Info("generation cancelled before start", "chat_id", p.ChatID)
			return nil
		}

		worker.Run(h, generation.Job{ChatID: p.ChatID, Prompt: p.Prompt})
		return nil
	})
}
