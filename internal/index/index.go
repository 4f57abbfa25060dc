// Package index implements semantic retrieval over the two course
// collections: fuzzy course-name resolution against the catalog and
// filtered similarity search against the content collection.
package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/course-rag-server/internal/storage"
)

// Embedder is the embedding capability the index depends on.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the vector-level storage contract the index drives.
type Store interface {
	UpsertCatalogEntry(ctx context.Context, entry *storage.CatalogEntry, vector []float32) error
	UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error
	HasCourse(ctx context.Context, title string) (bool, error)
	GetCatalogEntry(ctx context.Context, title string) (*storage.CatalogEntry, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
	SearchCatalog(ctx context.Context, vector []float32, limit int) ([]storage.CatalogMatch, error)
	SearchChunks(ctx context.Context, vector []float32, limit int, courseTitle string, lessonNumber *int) ([]storage.SearchResult, error)
	ClearCollections(ctx context.Context) error
}

// CourseIndex pairs an embedder with the vector store.
type CourseIndex struct {
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

// New creates a CourseIndex.
func New(embedder Embedder, store Store, logger *slog.Logger) *CourseIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseIndex{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// catalogText is what a course's catalog vector embeds. Including the
// instructor lets queries like "the course by Dr. Smith" resolve.
func catalogText(course *storage.Course) string {
	if course.Instructor == "" {
		return course.Title
	}
	return fmt.Sprintf("%s by %s", course.Title, course.Instructor)
}

// UpsertCourse inserts or updates the course's catalog entry. The
// catalog point id is derived from the title, so repeated upserts of
// the same course are idempotent.
func (ci *CourseIndex) UpsertCourse(ctx context.Context, course *storage.Course) error {
	vector, err := ci.embedder.EmbedQuery(ctx, catalogText(course))
	if err != nil {
		return fmt.Errorf("embed catalog entry: %w", err)
	}

	entry := &storage.CatalogEntry{
		Title:      course.Title,
		Link:       course.Link,
		Instructor: course.Instructor,
		Lessons:    course.Lessons,
	}
	return ci.store.UpsertCatalogEntry(ctx, entry, vector)
}

// UpsertChunks embeds chunk texts in batch and stores them in the
// content collection.
func (ci *CourseIndex) UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := ci.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	return ci.store.UpsertChunks(ctx, chunks)
}

// HasCourse reports whether a course with exactly this title exists.
func (ci *CourseIndex) HasCourse(ctx context.Context, title string) (bool, error) {
	return ci.store.HasCourse(ctx, title)
}

// ListCourseTitles returns all cataloged course titles.
func (ci *CourseIndex) ListCourseTitles(ctx context.Context) ([]string, error) {
	return ci.store.ListCourseTitles(ctx)
}

// Clear drops all cataloged courses and chunks.
func (ci *CourseIndex) Clear(ctx context.Context) error {
	return ci.store.ClearCollections(ctx)
}

// ResolveCourseName maps a possibly imprecise course name ("the python
// course") to the canonical stored title via embedding similarity. The
// top-1 catalog match is accepted without a similarity threshold.
// Returns storage.ErrCourseNotFound when the catalog has no entries.
func (ci *CourseIndex) ResolveCourseName(ctx context.Context, name string) (string, error) {
	vector, err := ci.embedder.EmbedQuery(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embed course name: %w", err)
	}

	matches, err := ci.store.SearchCatalog(ctx, vector, 1)
	if err != nil {
		return "", fmt.Errorf("search catalog: %w", err)
	}
	if len(matches) == 0 {
		return "", storage.ErrCourseNotFound
	}

	ci.logger.Debug("resolved course name", "query", name, "title", matches[0].Title, "score", matches[0].Score)
	return matches[0].Title, nil
}

// Search runs the two-stage retrieval: when courseName is set it is
// resolved to a canonical title first, then the content search is
// constrained to that exact title (and lesson number, when given)
// before ranking. An empty result slice is a valid outcome, distinct
// from the storage.ErrCourseNotFound resolution failure.
func (ci *CourseIndex) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) ([]storage.SearchResult, error) {
	var title string
	if courseName != "" {
		resolved, err := ci.ResolveCourseName(ctx, courseName)
		if err != nil {
			return nil, err
		}
		title = resolved
	}

	vector, err := ci.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return ci.store.SearchChunks(ctx, vector, limit, title, lessonNumber)
}

// GetCourseOutline resolves a course name and returns its catalog
// entry: title, link, instructor and the ordered lesson list.
func (ci *CourseIndex) GetCourseOutline(ctx context.Context, name string) (*storage.CatalogEntry, error) {
	title, err := ci.ResolveCourseName(ctx, name)
	if err != nil {
		return nil, err
	}
	return ci.store.GetCatalogEntry(ctx, title)
}
