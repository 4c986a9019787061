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
)

// CreateChatController handles the chat creation endpoint
// One controller per endpoint

type CreateChatController struct {
	UC *usecase.CreateChatUseCase
}

func NewCreateChatController(pool *pgxpool.Pool) *CreateChatController {
	repo := adapter.NewPgChatRepository(pool)
	uc := usecase.NewCreateChatUseCase(repo)
	return &CreateChatController{UC: uc}
}

type createChatRequest struct {
	Name string `json:"name"`
}

func (h *CreateChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.CreateChatInput{OwnerID: auth.UserID(c), Name: req.Name}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		conv, err := h.UC.Execute(ctx, in)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         conv.ID,
			"name":       conv.Name,
			"created_at": conv.CreatedAt,
		})
	}
}
