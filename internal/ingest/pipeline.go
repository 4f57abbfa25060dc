// Package ingest walks course document folders and feeds parsed
// courses and chunks into the index.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bull/course-rag-server/internal/docparse"
	"github.com/bull/course-rag-server/internal/storage"
)

// Indexer is the index capability the pipeline drives, satisfied by
// index.CourseIndex.
type Indexer interface {
	UpsertCourse(ctx context.Context, course *storage.Course) error
	UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error
	HasCourse(ctx context.Context, title string) (bool, error)
	Clear(ctx context.Context) error
}

// Result summarizes one ingestion run.
type Result struct {
	TotalDocs   int
	TotalChunks int
	SkippedDocs int
	FailedDocs  int
	Duration    time.Duration
}

// Pipeline ingests course documents: parse, chunk, embed, store.
type Pipeline struct {
	index     Indexer
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// New creates a Pipeline with the given chunking parameters.
func New(index Indexer, chunkSize, overlap int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		index:     index,
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    logger,
	}
}

// IngestDocument parses one course document and indexes its catalog
// entry and content chunks. Documents whose course title is already
// cataloged are skipped, which keeps repeated startup ingestion from
// duplicating content.
func (p *Pipeline) IngestDocument(ctx context.Context, path string) (chunks int, skipped bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false, fmt.Errorf("read document: %w", err)
	}

	course, sections, err := docparse.ParseDocument(string(data))
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	exists, err := p.index.HasCourse(ctx, course.Title)
	if err != nil {
		return 0, false, fmt.Errorf("check course %q: %w", course.Title, err)
	}
	if exists {
		p.logger.Info("course already indexed, skipping", "title", course.Title)
		return 0, true, nil
	}

	docChunks := docparse.BuildChunks(course, sections, p.chunkSize, p.overlap)

	if err := p.index.UpsertCourse(ctx, course); err != nil {
		return 0, false, fmt.Errorf("index course %q: %w", course.Title, err)
	}
	if err := p.index.UpsertChunks(ctx, docChunks); err != nil {
		return 0, false, fmt.Errorf("index chunks for %q: %w", course.Title, err)
	}

	p.logger.Info("indexed course",
		"title", course.Title,
		"lessons", len(course.Lessons),
		"chunks", len(docChunks))
	return len(docChunks), false, nil
}

// IngestFolder ingests every .txt document in dir, isolating failures
// per document. When clear is set, both collections are dropped first.
// A missing folder is not an error; the run just reports zero docs.
func (p *Pipeline) IngestFolder(ctx context.Context, dir string, clear bool) (*Result, error) {
	start := time.Now()
	result := &Result{}

	if clear {
		if err := p.index.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear collections: %w", err)
		}
		p.logger.Info("cleared existing collections")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			p.logger.Warn("document folder does not exist", "dir", dir)
			result.Duration = time.Since(start)
			return result, nil
		}
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		result.TotalDocs++

		chunks, skipped, err := p.IngestDocument(ctx, filepath.Join(dir, entry.Name()))
		switch {
		case err != nil:
			result.FailedDocs++
			p.logger.Error("failed to ingest document", "file", entry.Name(), "error", err)
		case skipped:
			result.SkippedDocs++
		default:
			result.TotalChunks += chunks
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"docs", result.TotalDocs,
		"chunks", result.TotalChunks,
		"skipped", result.SkippedDocs,
		"failed", result.FailedDocs,
		"duration", result.Duration)
	return result, nil
}
