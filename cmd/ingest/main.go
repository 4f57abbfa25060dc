// Package main provides the ingestion CLI for course documents.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/course-rag-server/internal/config"
	"github.com/bull/course-rag-server/internal/embedding"
	"github.com/bull/course-rag-server/internal/index"
	"github.com/bull/course-rag-server/internal/ingest"
	"github.com/bull/course-rag-server/internal/storage"
)

var clearFirst bool

var rootCmd = &cobra.Command{
	Use:   "course-ingest",
	Short: "Course document indexing tool",
	Long:  "CLI tool for indexing course documents into Qdrant",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder]",
	Short: "Index every course document in a folder",
	Long: `Parses each .txt course document in the folder, chunks its lesson
content, generates embeddings and stores the course catalog entry and
chunks in Qdrant. Documents whose course is already indexed are
skipped unless --clear is given.

Environment variables:
  COURSERAG_QDRANT_HOST Qdrant hostname (default: localhost)
  COURSERAG_QDRANT_PORT Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY        OpenAI API key for embeddings (required)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&clearFirst, "clear", false, "clear existing collections before indexing")
	rootCmd.AddCommand(ingestCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(os.Getenv("COURSERAG_CONFIG"))
	if err != nil {
		return err
	}

	folder := cfg.Ingest.DocsPath
	if len(args) == 1 {
		folder = args[0]
	}

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.Qdrant.Host, cfg.Qdrant.Port)
	store, err := storage.NewStore(cfg.Qdrant.Host, cfg.Qdrant.Port)
	if err != nil {
		return fmt.Errorf("connect to Qdrant: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollections(ctx); err != nil {
		return fmt.Errorf("ensure collections: %w", err)
	}

	embedder, err := embedding.New(cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbedBatchSize)
	if err != nil {
		return fmt.Errorf("create embedding client: %w", err)
	}

	courseIndex := index.New(embedder, store, logger)
	pipeline := ingest.New(courseIndex, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, logger)

	fmt.Printf("Indexing course documents from %s...\n", folder)
	result, err := pipeline.IngestFolder(ctx, folder, clearFirst)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Ingestion complete:")
	fmt.Printf("  Documents: %d\n", result.TotalDocs)
	fmt.Printf("  Chunks:    %d\n", result.TotalChunks)
	fmt.Printf("  Skipped:   %d\n", result.SkippedDocs)
	fmt.Printf("  Failed:    %d\n", result.FailedDocs)
	fmt.Printf("  Duration:  %s\n", result.Duration.Round(time.Millisecond))
	return nil
}
