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

// RenameChatController handles renaming a conversation (one controller per endpoint)
type RenameChatController struct {
	UC *usecase.RenameChatUseCase
}

func NewRenameChatController(pool *pgxpool.Pool) *RenameChatController {
	repo := adapter.NewPgChatRepository(pool)
	return &RenameChatController{UC: usecase.NewRenameChatUseCase(repo)}
}

type renameChatRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *RenameChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")
		if chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		var req renameChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.RenameChatInput{
			ChatID: chatID,
			UserID: auth.UserID(c),
			Name:   req.Name,
		})
		if err != nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, repository.ErrNotFound):
				status = http.StatusNotFound
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": chatID, "name": req.Name})
	}
}
