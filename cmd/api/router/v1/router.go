package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v3spiary/dreadnought/internal/config"
	"github.com/v3spiary/dreadnought/internal/infrastructure/auth"
	bport "github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	httpHandler "github.com/v3spiary/dreadnought/internal/pkg/chat/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(
	r *gin.Engine,
	pool *pgxpool.Pool,
	authn *auth.Authenticator,
	broker bport.Broker,
	registry *generation.Registry,
	queue qport.Client,
	cfg config.ChatConfig,
) {
	v1 := r.Group("/api/v1")
	// Pass shared infrastructure down to the HTTP layer
	httpHandler.RegisterRoutes(v1, pool, authn, broker, registry, queue, cfg)
}
