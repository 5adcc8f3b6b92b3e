// Package app assembles the docqa components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/option"

	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/extract"
	"github.com/bull/docqa/internal/index"
	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/ingest"
	"github.com/bull/docqa/internal/ocr"
	"github.com/bull/docqa/internal/orchestrator"
	"github.com/bull/docqa/internal/retriever"
	"github.com/bull/docqa/internal/storage"
	"github.com/bull/docqa/internal/themes"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config       *config.Config
	Store        storage.VectorStore
	Index        *index.Index
	Ingest       *ingest.Service
	Catalog      *catalog.Catalog
	Orchestrator *orchestrator.Orchestrator
}

// New connects the vector store and builds every component on top of it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var opts []option.RequestOption
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	client, err := embedding.NewClient(cfg.OpenAI.APIKey, opts...)
	if err != nil {
		return nil, err
	}
	client.SetRateLimit(cfg.OpenAI.RequestsPerMinute)

	recognizer, err := ocr.New(cfg.OCR.Engine, client, cfg.OpenAI.VisionModel, cfg.OCR.TesseractPath, logger)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	idx := index.New(embedding.NewEmbedder(client, cfg.OpenAI.EmbeddingModel, 0), store, 0)

	svc, err := ingest.NewService(
		extract.New(recognizer, logger),
		indexer.New(idx, logger),
		cfg.UploadDir,
		cfg.Workers.Upload,
		logger,
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	cat := catalog.New(idx)
	synth := themes.NewSynthesizer(client,
		themes.WithModel(cfg.OpenAI.ChatModel),
		themes.WithMaxTokens(cfg.Query.MaxThemeTokens),
		themes.WithLogger(logger),
	)
	orch := orchestrator.New(cat, retriever.New(idx), synth, orchestrator.Config{
		Workers:          cfg.Workers.Query,
		TopK:             cfg.Query.TopK,
		RetrievalTimeout: cfg.Query.RetrievalTimeout,
	}, logger)

	return &App{
		Config:       cfg,
		Store:        store,
		Index:        idx,
		Ingest:       svc,
		Catalog:      cat,
		Orchestrator: orch,
	}, nil
}

// Close releases the vector store.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewStore opens the configured vector store backend.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.VectorStore, error) {
	switch cfg.Index.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteStorage(cfg.Index.Dir, cfg.Index.Dimension)
		if err != nil {
			return nil, fmt.Errorf("open sqlite index: %w", err)
		}
		logger.Info("Using SQLite index", "dir", cfg.Index.Dir)
		return store, nil
	case "qdrant":
		store, err := storage.NewQdrantStorage(storage.QdrantConfig{
			Host:       cfg.Index.QdrantHost,
			Port:       cfg.Index.QdrantPort,
			Collection: cfg.Index.Collection,
			Dimension:  cfg.Index.Dimension,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure collection: %w", err)
		}
		logger.Info("Using Qdrant index", "host", cfg.Index.QdrantHost, "port", cfg.Index.QdrantPort)
		return store, nil
	}
	return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
}
