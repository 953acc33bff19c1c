package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/alanyang/promptledger/internal/config"
	"github.com/alanyang/promptledger/internal/wire"
)

func main() {
	cfgFile := flag.String("config", "", "config file (YAML)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("worker error", "error", err)
		cancel()
		os.Exit(1)
	}
	slog.Info("worker stopped")
}

// run consumes run:execute tasks from asynq when a broker is configured and
// polls the ledger otherwise.
func run(ctx context.Context, cfg config.Config) error {
	app, err := wire.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer app.Close()
	app.StartBackground(ctx)

	if cfg.Redis.Addr == "" {
		slog.Info("starting polling worker", "interval", cfg.Worker.PollInterval)
		app.Worker.Poll(ctx, cfg.Worker.PollInterval, cfg.Worker.Concurrency)
		return nil
	}

	srv := asynq.NewServer(wire.RedisOpt(cfg.Redis), asynq.Config{
		Concurrency:     cfg.Worker.Concurrency,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	if err := srv.Start(app.Worker.Mux()); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency)

	<-ctx.Done()
	srv.Shutdown()
	return nil
}
