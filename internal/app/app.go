// Package app wires configuration, storage, the broadcast broker, the
// generation pipeline, and the HTTP surface into one runnable server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	v1 "github.com/v3spiary/dreadnought/cmd/api/router/v1"
	"github.com/v3spiary/dreadnought/internal/config"
	"github.com/v3spiary/dreadnought/internal/infrastructure/auth"
	brokerAdapter "github.com/v3spiary/dreadnought/internal/infrastructure/broker/adapter"
	bport "github.com/v3spiary/dreadnought/internal/infrastructure/broker/port"
	"github.com/v3spiary/dreadnought/internal/infrastructure/database"
	queueAdapter "github.com/v3spiary/dreadnought/internal/infrastructure/queue/adapter"
	qport "github.com/v3spiary/dreadnought/internal/infrastructure/queue/port"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/generation"
	"github.com/v3spiary/dreadnought/internal/pkg/chat/application/task"
	repoAdapter "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/adapter"
)

// App owns every long-lived component of the server process.
type App struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	broker   bport.Broker
	queue    qport.Client
	queueSrv qport.Server
	registry *generation.Registry
	engine   *gin.Engine
}

// New builds the full application from configuration. Components are
// constructed in dependency order and torn down in reverse by Close.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.Log)

	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}

	broker, err := newBroker(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	queueClient, err := queueAdapter.NewAsynqClient(cfg.Redis.URL)
	if err != nil {
		_ = broker.Close()
		pool.Close()
		return nil, fmt.Errorf("app: queue client: %w", err)
	}
	queueSrv, err := queueAdapter.NewAsynqServer(cfg.Redis.URL, cfg.Generation.MaxWorkers)
	if err != nil {
		_ = queueClient.Close()
		_ = broker.Close()
		pool.Close()
		return nil, fmt.Errorf("app: queue server: %w", err)
	}

	registry := generation.NewRegistry()
	client := generation.NewClient(
		cfg.Generation.OllamaURL,
		cfg.Generation.Model,
		cfg.Generation.SystemPrompt,
		cfg.Generation.Timeout,
	)
	worker := generation.NewWorker(client, repoAdapter.NewPgChatRepository(pool), broker, registry)
	task.RegisterGenerateReplyTask(queueSrv, registry, worker)

	authn := auth.NewAuthenticator(cfg.Auth.JWTSecret)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", healthHandler(pool))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	v1.RegisterRoutes(engine, pool, authn, broker, registry, queueClient, cfg.Chat)

	return &App{
		cfg:      cfg,
		pool:     pool,
		broker:   broker,
		queue:    queueClient,
		queueSrv: queueSrv,
		registry: registry,
		engine:   engine,
	}, nil
}

// Run serves HTTP and the generation queue until ctx is canceled, then shuts
// both down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("generation workers starting", "concurrency", a.cfg.Generation.MaxWorkers)
		return a.queueSrv.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		a.registry.StopAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases every resource owned by the App.
func (a *App) Close() {
	if err := a.queue.Close(); err != nil {
		slog.Warn("closing queue client", "error", err)
	}
	if err := a.broker.Close(); err != nil {
		slog.Warn("closing broker", "error", err)
	}
	a.pool.Close()
}

func newBroker(cfg *config.Config) (bport.Broker, error) {
	switch cfg.Broker.Kind {
	case "memory":
		return brokerAdapter.NewMemoryBroker(), nil
	case "redis":
		b, err := brokerAdapter.NewRedisBroker(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("app: redis broker: %w", err)
		}
		return b, nil
	case "nats":
		b, err := brokerAdapter.NewNATSBroker(cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("app: nats broker: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("app: unknown broker kind %q", cfg.Broker.Kind)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func healthHandler(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
