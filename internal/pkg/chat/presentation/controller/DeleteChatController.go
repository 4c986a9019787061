package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v3spiary/dreadnought/internal/infrastructure/auth"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/usecase"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/adapter"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// DeleteChatController handles soft-deleting a conversation
// (one controller per endpoint)
type DeleteChatController struct {
	UC *usecase.DeleteChatUseCase
}

func NewDeleteChatController(pool *pgxpool.Pool) *DeleteChatController {
	repo := adapter.NewPgChatRepository(pool)
	return &DeleteChatController{UC: usecase.NewDeleteChatUseCase(repo)}
}

func (h *DeleteChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")
		if chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := h.UC.Execute(ctx, chatID, auth.UserID(c)); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repository.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
