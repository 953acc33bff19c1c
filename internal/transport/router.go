package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/promptledger/internal/domain/event"
	porteventbus "github.com/alanyang/promptledger/internal/port/eventbus"
	portidem "github.com/alanyang/promptledger/internal/port/idempotency"
	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
	runsvc "github.com/alanyang/promptledger/internal/service/run"

	mcptransport "github.com/alanyang/promptledger/internal/transport/mcp"
	prompthandler "github.com/alanyang/promptledger/internal/transport/prompt"
	runhandler "github.com/alanyang/promptledger/internal/transport/run"
	wshandler "github.com/alanyang/promptledger/internal/transport/ws"
)

// Deps is everything the router mounts. MCP is optional.
type Deps struct {
	PromptSvc      *promptsvc.Service
	RunSvc         *runsvc.Service
	EventBus       porteventbus.EventBus
	Idempotency    portidem.Store
	IdempotencyTTL time.Duration
	MCP            *mcptransport.Server
}

func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())
	r.Use(IdempotencyMiddleware(d.Idempotency, d.IdempotencyTTL))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	prompthandler.Register(api.Group("/prompts"), d.PromptSvc)
	prompthandler.RegisterResolve(api.Group("/resolve"), d.PromptSvc)
	runhandler.Register(api.Group("/runs"), d.RunSvc)

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	if d.MCP != nil {
		r.Any("/mcp", gin.WrapH(d.MCP.Handler()))
	}

	// Bridge: one subscription per domain channel. Every event goes to the WS
	// hub; terminal run events also wake MCP sessions watching that run.
	for _, ch := range event.Channels {
		c := ch
		if _, err := d.EventBus.Subscribe(ctx, c, func(ctx context.Context, e event.Event) {
			hub.Broadcast(e)
			if d.MCP != nil && c == event.ChannelRun {
				if err := d.MCP.Registry().HandleEvent(ctx, e); err != nil {
					slog.WarnContext(ctx, "mcp run notification failed", "run_id", e.EntityID, "error", err)
				}
			}
		}); err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", c, "error", err)
		}
	}

	return r
}
