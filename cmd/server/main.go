// Package main provides the HTTP server entry point for the course
// materials RAG system.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/course-rag-server/internal/api"
	"github.com/bull/course-rag-server/internal/config"
	"github.com/bull/course-rag-server/internal/embedding"
	"github.com/bull/course-rag-server/internal/generation"
	"github.com/bull/course-rag-server/internal/index"
	"github.com/bull/course-rag-server/internal/ingest"
	"github.com/bull/course-rag-server/internal/rag"
	"github.com/bull/course-rag-server/internal/session"
	"github.com/bull/course-rag-server/internal/storage"
	"github.com/bull/course-rag-server/internal/tool"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(os.Getenv("COURSERAG_CONFIG"))
	if err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.Qdrant.Host, cfg.Qdrant.Port)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureCollections(ctx); err != nil {
		return err
	}

	embedder, err := embedding.New(cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbedBatchSize)
	if err != nil {
		return err
	}

	courseIndex := index.New(embedder, store, logger)
	pipeline := ingest.New(courseIndex, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, logger)

	registry := tool.NewRegistry(logger)
	registry.Register(tool.NewSearchTool(courseIndex, cfg.Retrieval.MaxResults))
	registry.Register(tool.NewOutlineTool(courseIndex))

	provider, err := generation.NewOpenAIProvider(cfg.OpenAI.Model, cfg.OpenAI.MaxTokens)
	if err != nil {
		return err
	}
	orchestrator := generation.NewOrchestrator(provider, registry, logger)

	sessions := session.NewStore(cfg.Session.MaxHistory)
	coordinator := rag.New(orchestrator, registry, sessions, courseIndex, pipeline, logger)

	// Index any course documents present at startup. Already-cataloged
	// courses are skipped, so restarts are cheap.
	if cfg.Ingest.DocsPath != "" {
		if _, err := coordinator.IngestFolder(ctx, cfg.Ingest.DocsPath, false); err != nil {
			logger.Error("startup ingestion failed", "error", err)
		}
	}

	server := api.New(coordinator, store, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "address", cfg.Server.Address)
		errCh <- server.Start(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
