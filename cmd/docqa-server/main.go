// Package main provides the docqa server entry point.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/bull/docqa/internal/api"
	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/config"
	mcpserver "github.com/bull/docqa/internal/mcp"
	"github.com/bull/docqa/internal/watcher"
)

var version = "dev"

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	envErr := godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(getEnv("DOCQA_CONFIG", config.DefaultPath))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol in stdio mode, so logs always go to stderr.
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mcp := mcpserver.NewServer(&mcpserver.Config{
		Answerer:  a.Orchestrator,
		Documents: a.Catalog,
		Index:     a.Index,
		Backend:   cfg.Index.Backend,
		Version:   version,
	})

	router := api.NewRouter(&api.Config{
		Uploader:  a.Ingest,
		Answerer:  a.Orchestrator,
		Documents: a.Catalog,
		Health:    a.Index,
		MCP:       mcp.Handler(false),
		Logger:    logger,
	})

	var w *watcher.Watcher
	if cfg.WatchDir != "" {
		if w, err = watcher.New(cfg.WatchDir, a.Ingest, 0, logger); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, cfg.Addr, router, logger)
	})
	if w != nil {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if !cfg.ServerMode {
		// Stdio mode: MCP over stdin/stdout for a local client, HTTP stays up
		// alongside it. The client disconnecting ends the process.
		g.Go(func() error {
			logger.Info("Starting docqa MCP server (stdio mode)")
			err := mcp.Run(gctx)
			if err == nil {
				err = context.Canceled
			}
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
