package wire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/promptledger/internal/adapter/memory"
	pgdb "github.com/alanyang/promptledger/internal/adapter/postgres"
	pgeventbus "github.com/alanyang/promptledger/internal/adapter/postgres/eventbus"
	pgidem "github.com/alanyang/promptledger/internal/adapter/postgres/idempotency"
	pglocker "github.com/alanyang/promptledger/internal/adapter/postgres/locker"
	pgprompt "github.com/alanyang/promptledger/internal/adapter/postgres/prompt"
	pgrun "github.com/alanyang/promptledger/internal/adapter/postgres/run"
	"github.com/alanyang/promptledger/internal/adapter/queue"
	"github.com/alanyang/promptledger/internal/adapter/system"
	"github.com/alanyang/promptledger/internal/config"

	portdispatcher "github.com/alanyang/promptledger/internal/port/dispatcher"
	porteventbus "github.com/alanyang/promptledger/internal/port/eventbus"
	portidem "github.com/alanyang/promptledger/internal/port/idempotency"
	portlocker "github.com/alanyang/promptledger/internal/port/locker"
	portprompt "github.com/alanyang/promptledger/internal/port/prompt"
	portrun "github.com/alanyang/promptledger/internal/port/run"

	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
	runsvc "github.com/alanyang/promptledger/internal/service/run"

	"github.com/alanyang/promptledger/internal/transport"
	mcptransport "github.com/alanyang/promptledger/internal/transport/mcp"
	"github.com/alanyang/promptledger/internal/worker"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Config    config.Config
	Pool      *pgxpool.Pool // nil with memory storage
	Server    *http.Server
	PromptSvc *promptsvc.Service
	RunSvc    *runsvc.Service
	Worker    *worker.Worker
	EventBus  porteventbus.EventBus

	purger  Purger
	closers []func() error
}

type adapters struct {
	prompts     portprompt.Repository
	runs        portrun.Repository
	locker      portlocker.AdvisoryLocker
	bus         porteventbus.EventBus
	idempotency portidem.Store
	purger      Purger
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}

	// ── Storage ──────────────────────────────────────────────────────────────
	var a adapters
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := pgdb.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		app.Pool = pool
		idem := pgidem.New(pool)
		a = adapters{
			prompts:     pgprompt.New(pool),
			runs:        pgrun.New(pool),
			locker:      pglocker.New(pool),
			bus:         pgeventbus.New(pool, cfg.EventBus.ChannelPrefix),
			idempotency: idem,
			purger:      idem,
		}
	case config.StorageMemory:
		a = adapters{
			prompts:     memory.NewPromptRepository(),
			runs:        memory.NewRunRepository(),
			locker:      memory.NewLocker(),
			bus:         memory.NewEventBus(),
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		}
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	app.EventBus = a.bus
	app.purger = a.purger

	// ── Dispatch ─────────────────────────────────────────────────────────────
	var dispatcher portdispatcher.RunDispatcher = system.NopDispatcher{}
	if cfg.Redis.Addr != "" {
		d := queue.NewDispatcher(RedisOpt(cfg.Redis))
		app.closers = append(app.closers, d.Close)
		dispatcher = d
	}

	// ── Services ─────────────────────────────────────────────────────────────
	clock, ids := system.Clock{}, system.IDGenerator{}
	app.PromptSvc = promptsvc.NewService(a.prompts, a.locker, a.bus, clock, ids, cfg.Pagination.Prompts)
	app.RunSvc = runsvc.NewService(a.runs, app.PromptSvc, a.bus, dispatcher, clock, ids, cfg.Pagination.Runs)
	app.Worker = worker.New(app.RunSvc, app.PromptSvc, worker.RenderExecutor{})

	// ── Transport ────────────────────────────────────────────────────────────
	router := transport.NewRouter(ctx, transport.Deps{
		PromptSvc:      app.PromptSvc,
		RunSvc:         app.RunSvc,
		EventBus:       a.bus,
		Idempotency:    a.idempotency,
		IdempotencyTTL: cfg.IdempotencyTTL,
		MCP:            mcptransport.New(app.PromptSvc, app.RunSvc),
	})
	app.Server = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("application wired", "port", cfg.Port, "storage", cfg.Storage, "queue", cfg.Redis.Addr != "")
	return app, nil
}

// StartBackground launches the idempotency janitor and the stale-run reaper.
// Call once after Build.
func (a *App) StartBackground(ctx context.Context) {
	if a.purger != nil {
		go startJanitor(ctx, a.purger, a.EventBus, a.Config.Janitor.Interval)
	}
	if a.Config.Worker.StaleAfter > 0 {
		go startReaper(ctx, a.RunSvc, a.Config.Worker.StaleAfter, a.Config.Worker.ReapInterval)
	}
}

// Close releases the pool and the queue client.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return errors.Join(errs...)
}

func RedisOpt(c config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}
