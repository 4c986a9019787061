package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v3spiary/dreadnought/internal/infrastructure/auth"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/usecase"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/adapter"
)

// ListChatsController handles listing the caller's conversations
// (one controller per endpoint)
type ListChatsController struct {
	UC *usecase.ListChatsUseCase
}

func NewListChatsController(pool *pgxpool.Pool) *ListChatsController {
	repo := adapter.NewPgChatRepository(pool)
	return &ListChatsController{UC: usecase.NewListChatsUseCase(repo)}
}

func (h *ListChatsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		convs, err := h.UC.Execute(ctx, auth.UserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(convs))
		for _, conv := range convs {
			out = append(out, gin.H{
				"id":         conv.ID,
				"name":       conv.Name,
				"is_pinned":  conv.IsPinned,
				"created_at": conv.CreatedAt,
				"updated_at": conv.UpdatedAt,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"chats": out,
			"count": len(out),
		})
	}
}
