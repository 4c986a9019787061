package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v3spiary/dreadnought/internal/infrastructure/auth"
	bport "github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/infrastructure/realtime"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/usecase"
	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repoAdapter "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/adapter"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

// ChatSocketController handles the websocket endpoint for one conversation:
// it relays broadcast events to the client and turns inbound prompts into a
// persisted message plus a queued generation.
type ChatSocketController struct {
	auth     *auth.Authenticator
	broker   bport.Broker
	registry *generation.Registry
	repo     repository.ChatRepository

	sendMessageUC *usecase.SendMessageUseCase
	dispatchUC    *usecase.DispatchGenerationUseCase

	pingInterval    time.Duration
	pongWait        time.Duration
	inflightTimeout time.Duration
}

func NewChatSocketController(
	pool *pgxpool.Pool,
	authn *auth.Authenticator,
	broker bport.Broker,
	registry *generation.Registry,
	queue qport.Client,
	maxMessageLength int,
	pingInterval, pongWait time.Duration,
) *ChatSocketController {
	repo := repoAdapter.NewPgChatRepository(pool)
	return &ChatSocketController{
		auth:            authn,
		broker:          broker,
		registry:        registry,
		repo:            repo,
		sendMessageUC:   usecase.NewSendMessageUseCase(repo, maxMessageLength),
		dispatchUC:      usecase.NewDispatchGenerationUseCase(registry, queue),
		pingInterval:    pingInterval,
		pongWait:        pongWait,
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth is token-based, not cookie-based, so cross-origin upgrades
		// cannot ride ambient credentials.
		return true
	},
}

type inboundFrame struct {
	Message string `json:"message"`
}

// Handle upgrades the HTTP connection and processes frames until the client
// disconnects. Authentication and ownership failures are reported through
// websocket close codes so browser clients can distinguish them.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		userID, err := ctl.auth.UserIDFromRequest(c.Request)
		if err != nil {
			closeWith(ws, realtime.CloseUnauthenticated, "authentication required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
		owns, err := ctl.repo.IsOwner(ctx, chatID, userID)
		cancel()
		if err != nil {
			closeWith(ws, realtime.CloseInternalError, "internal error")
			return
		}
		if !owns {
			closeWith(ws, realtime.CloseAccessDenied, "chat not found")
			return
		}

		sub, err := ctl.broker.Subscribe(c.Request.Context(), chatID)
		if err != nil {
			slog.Error("broker subscribe failed", "chat_id", chatID, "error", err)
			closeWith(ws, realtime.CloseInternalError, "internal error")
			return
		}

		conn := realtime.NewConnection(userID, ws, ctl.pingInterval)
		conn.Start()
		defer func() {
			_ = sub.Close()
			ctl.registry.Stop(chatID)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(ctl.pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(ctl.pongWait))
		})

		ctl.sendEvent(conn, chat.NewConnectionEstablished(chatID, userID))

		go ctl.relay(conn, sub)

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				slog.Debug("websocket read ended", "chat_id", chatID, "error", err)
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.sendEvent(conn, chat.NewErrorEvent("Invalid message format"))
				continue
			}

			ctl.handlePrompt(c.Request.Context(), conn, chatID, userID, frame.Message)
		}
	}
}

// relay copies broadcast events to this client until the subscription closes.
// Registry bookkeeping is not done here: the worker releases the handle before
// it publishes the terminal event, so by the time ai_complete reaches any
// observer the registry entry for that generation is already gone.
func (ctl *ChatSocketController) relay(conn *realtime.Connection, sub bport.Subscription) {
	for e := range sub.Events() {
		ctl.sendEvent(conn, e)
	}
}

func (ctl *ChatSocketController) handlePrompt(parent context.Context, conn *realtime.Connection, chatID, userID, prompt string) {
	// Admission first: a rejected prompt must leave no trace, so the slot is
	// reserved before the message row is written. The handle is released on
	// every failure path between here and the enqueue.
	h, err := ctl.dispatchUC.Admit(chatID)
	if err != nil {
		ctl.sendEvent(conn, chat.NewErrorEvent("Please wait for the current response to complete"))
		return
	}

	ctx, cancel := context.WithTimeout(parent, ctl.inflightTimeout)
	defer cancel()

	msg, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ChatID:   chatID,
		SenderID: userID,
		Content:  prompt,
	})
	if err != nil {
		ctl.registry.Finish(h)
		ctl.sendEvent(conn, chat.NewErrorEvent(promptErrorMessage(err)))
		return
	}

	// Echo the persisted message to every group member before the first
	// generated fragment can appear.
	if err := ctl.broker.Publish(ctx, chatID, chat.NewUserMessageEvent(*msg)); err != nil {
		slog.Error("publish user message failed", "chat_id", chatID, "error", err)
	}

	// Enqueue releases the handle itself on failure.
	if err := ctl.dispatchUC.Enqueue(ctx, h, msg.Content); err != nil {
		slog.Error("dispatch generation failed", "chat_id", chatID, "error", err)
		ctl.sendEvent(conn, chat.NewErrorEvent("Failed to start response generation"))
		return
	}
}

func (ctl *ChatSocketController) sendEvent(conn *realtime.Connection, e chat.Event) {
	payload, err := chat.EncodeEvent(e)
	if err != nil {
		slog.Error("encode event failed", "kind", e.Kind(), "error", err)
		return
	}
	if err := conn.Send(payload); err != nil {
		slog.Debug("send to client failed", "kind", e.Kind(), "error", err)
	}
}

func promptErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "Message cannot be empty"
	case errors.Is(err, chat.ErrMessageTooLong):
		return "Message is too long"
	case errors.Is(err, repository.ErrNotFound):
		return "Chat not found"
	default:
		return "Failed to save message"
	}
}

func closeWith(ws *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = ws.Close()
}
