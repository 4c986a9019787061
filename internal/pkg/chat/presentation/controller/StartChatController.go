package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v3spiary/dreadnought/internal/infrastructure/auth"
	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/usecase"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/adapter"
)

// StartChatController handles the one-shot "new conversation from a prompt"
// endpoint: it creates the conversation with its first message and queues the
// generation before any client has connected.
// One controller per endpoint
type StartChatController struct {
	startUC    *usecase.StartChatUseCase
	dispatchUC *usecase.DispatchGenerationUseCase
}

func NewStartChatController(pool *pgxpool.Pool, registry *generation.Registry, queue qport.Client, maxMessageLength int) *StartChatController {
	repo := adapter.NewPgChatRepository(pool)
	return &StartChatController{
		startUC:    usecase.NewStartChatUseCase(repo, maxMessageLength),
		dispatchUC: usecase.NewDispatchGenerationUseCase(registry, queue),
	}
}

type startChatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *StartChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		conv, prompt, err := h.startUC.Execute(ctx, usecase.StartChatInput{
			OwnerID: auth.UserID(c),
			Prompt:  req.Message,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		// The conversation exists either way; a failed dispatch just means
		// the first reply arrives only after the user resubmits.
		message := "Chat created. Generating a response..."
		if _, err := h.dispatchUC.Execute(ctx, conv.ID, prompt); err != nil {
			slog.Error("dispatch generation for new chat failed", "chat_id", conv.ID, "error", err)
			message = "Chat created, but response generation could not be started. Send your message again from the chat."
		}

		c.JSON(http.StatusCreated, gin.H{
			"chat_id":      conv.ID,
			"success":      true,
			"message":      message,
			"redirect_url": "/service/chat/" + conv.ID,
		})
	}
}
