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

// TogglePinController handles pinning/unpinning a conversation
// (one controller per endpoint)
type TogglePinController struct {
	UC *usecase.TogglePinUseCase
}

func NewTogglePinController(pool *pgxpool.Pool) *TogglePinController {
	repo := adapter.NewPgChatRepository(pool)
	return &TogglePinController{UC: usecase.NewTogglePinUseCase(repo)}
}

func (h *TogglePinController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")
		if chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		pinned, err := h.UC.Execute(ctx, chatID, auth.UserID(c))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repository.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": chatID, "is_pinned": pinned})
	}
}
