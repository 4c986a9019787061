package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v3spiary/dreadnought/internal/config"
	"github.com/v3spiary/dreadnought/internal/infrastructure/auth"
	bport "github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/presentation/controller"
)

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
// The websocket route authenticates inside the handler so rejections arrive as
// websocket close codes instead of HTTP statuses.
func RegisterRoutes(
	g *gin.RouterGroup,
	pool *pgxpool.Pool,
	authn *auth.Authenticator,
	broker bport.Broker,
	registry *generation.Registry,
	queue qport.Client,
	cfg config.ChatConfig,
) {
	startCtl := controller.NewStartChatController(pool, registry, queue, cfg.MaxMessageLength)
	createCtl := controller.NewCreateChatController(pool)
	listCtl := controller.NewListChatsController(pool)
	getMsgsCtl := controller.NewGetMessagesController(pool)
	renameCtl := controller.NewRenameChatController(pool)
	pinCtl := controller.NewTogglePinController(pool)
	deleteCtl := controller.NewDeleteChatController(pool)
	socketCtl := controller.NewChatSocketController(
		pool, authn, broker, registry, queue,
		cfg.MaxMessageLength, cfg.PingInterval, cfg.PingTimeout,
	)

	rest := g.Group("/", authn.Middleware())

	// POST /api/v1/chats/start -> create a chat from a first prompt and queue the reply
	rest.POST("/chats/start", startCtl.Handle())

	// POST /api/v1/chats -> create an empty chat
	rest.POST("/chats", createCtl.Handle())

	// GET /api/v1/chats -> list the caller's chats
	rest.GET("/chats", listCtl.Handle())

	// GET /api/v1/chats/:chatId/messages -> fetch messages by chat id
	rest.GET("/chats/:chatId/messages", getMsgsCtl.Handle())

	// PATCH /api/v1/chats/:chatId/rename -> rename a chat
	rest.PATCH("/chats/:chatId/rename", renameCtl.Handle())

	// PATCH /api/v1/chats/:chatId/pin -> toggle the pinned flag
	rest.PATCH("/chats/:chatId/pin", pinCtl.Handle())

	// DELETE /api/v1/chats/:chatId -> soft-delete a chat
	rest.DELETE("/chats/:chatId", deleteCtl.Handle())

	// GET /api/v1/chats/:chatId/ws -> websocket endpoint for streaming chat
	g.GET("/chats/:chatId/ws", socketCtl.Handle())
}
