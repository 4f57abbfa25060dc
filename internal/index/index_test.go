package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/course-rag-server/internal/storage"
)

type fakeEmbedder struct {
	embedded []string
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		f.embedded = append(f.embedded, text)
		vectors[i] = []float32{float32(len(text))}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type fakeStore struct {
	entries    map[string]*storage.CatalogEntry
	chunks     []*storage.Chunk
	matches    []storage.CatalogMatch
	results    []storage.SearchResult
	cleared    bool
	gotTitle   string
	gotLesson  *int
	gotLimit   int
	searchErr  error
	catalogErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*storage.CatalogEntry)}
}

func (f *fakeStore) UpsertCatalogEntry(_ context.Context, entry *storage.CatalogEntry, _ []float32) error {
	f.entries[entry.Title] = entry
	return nil
}

func (f *fakeStore) UpsertChunks(_ context.Context, chunks []*storage.Chunk) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeStore) HasCourse(_ context.Context, title string) (bool, error) {
	_, ok := f.entries[title]
	return ok, nil
}

func (f *fakeStore) GetCatalogEntry(_ context.Context, title string) (*storage.CatalogEntry, error) {
	entry, ok := f.entries[title]
	if !ok {
		return nil, storage.ErrCourseNotFound
	}
	return entry, nil
}

func (f *fakeStore) ListCourseTitles(_ context.Context) ([]string, error) {
	titles := make([]string, 0, len(f.entries))
	for title := range f.entries {
		titles = append(titles, title)
	}
	return titles, nil
}

func (f *fakeStore) SearchCatalog(_ context.Context, _ []float32, limit int) ([]storage.CatalogMatch, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	if limit < len(f.matches) {
		return f.matches[:limit], nil
	}
	return f.matches, nil
}

func (f *fakeStore) SearchChunks(_ context.Context, _ []float32, limit int, courseTitle string, lessonNumber *int) ([]storage.SearchResult, error) {
	f.gotTitle = courseTitle
	f.gotLesson = lessonNumber
	f.gotLimit = limit
	return f.results, f.searchErr
}

func (f *fakeStore) ClearCollections(context.Context) error {
	f.cleared = true
	return nil
}

func TestUpsertCourse(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newFakeStore()
	ci := New(embedder, store, nil)

	course := &storage.Course{
		Title:      "Go Basics",
		Instructor: "Ada Lovelace",
		Lessons:    []storage.Lesson{{Number: 0, Title: "Intro"}},
	}
	require.NoError(t, ci.UpsertCourse(context.Background(), course))

	// The catalog vector embeds title plus instructor.
	require.Len(t, embedder.embedded, 1)
	assert.Equal(t, "Go Basics by Ada Lovelace", embedder.embedded[0])

	entry, ok := store.entries["Go Basics"]
	require.True(t, ok)
	assert.Len(t, entry.Lessons, 1)
}

func TestUpsertChunks(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newFakeStore()
	ci := New(embedder, store, nil)

	chunks := []*storage.Chunk{
		{Text: "first chunk", CourseTitle: "C"},
		{Text: "second chunk", CourseTitle: "C"},
	}
	require.NoError(t, ci.UpsertChunks(context.Background(), chunks))

	require.Len(t, store.chunks, 2)
	assert.NotNil(t, store.chunks[0].Embedding)
	assert.Equal(t, []string{"first chunk", "second chunk"}, embedder.embedded)
}

func TestUpsertChunksEmpty(t *testing.T) {
	embedder := &fakeEmbedder{}
	ci := New(embedder, newFakeStore(), nil)
	require.NoError(t, ci.UpsertChunks(context.Background(), nil))
	assert.Empty(t, embedder.embedded)
}

func TestResolveCourseName(t *testing.T) {
	store := newFakeStore()
	store.matches = []storage.CatalogMatch{
		{Title: "Introduction to Testing", Score: 0.92},
		{Title: "Go Basics", Score: 0.41},
	}
	ci := New(&fakeEmbedder{}, store, nil)

	title, err := ci.ResolveCourseName(context.Background(), "the testing course")
	require.NoError(t, err)
	assert.Equal(t, "Introduction to Testing", title)
}

func TestResolveCourseNameEmptyCatalog(t *testing.T) {
	ci := New(&fakeEmbedder{}, newFakeStore(), nil)
	_, err := ci.ResolveCourseName(context.Background(), "anything")
	require.ErrorIs(t, err, storage.ErrCourseNotFound)
}

func TestSearchUnfiltered(t *testing.T) {
	store := newFakeStore()
	store.results = []storage.SearchResult{{Content: "hit", CourseTitle: "C"}}
	ci := New(&fakeEmbedder{}, store, nil)

	hits, err := ci.Search(context.Background(), "query", "", nil, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.Empty(t, store.gotTitle)
	assert.Nil(t, store.gotLesson)
	assert.Equal(t, 5, store.gotLimit)
}

func TestSearchResolvesCourseFilter(t *testing.T) {
	lesson := 3
	store := newFakeStore()
	store.matches = []storage.CatalogMatch{{Title: "Go Basics", Score: 0.9}}
	ci := New(&fakeEmbedder{}, store, nil)

	_, err := ci.Search(context.Background(), "slices", "go", &lesson, 5)
	require.NoError(t, err)

	// The filter carries the resolved canonical title, not the raw name.
	assert.Equal(t, "Go Basics", store.gotTitle)
	require.NotNil(t, store.gotLesson)
	assert.Equal(t, 3, *store.gotLesson)
}

func TestSearchUnresolvableCourse(t *testing.T) {
	store := newFakeStore()
	ci := New(&fakeEmbedder{}, store, nil)

	_, err := ci.Search(context.Background(), "q", "ghost course", nil, 5)
	require.ErrorIs(t, err, storage.ErrCourseNotFound)
	// The content search never runs when resolution fails.
	assert.Zero(t, store.gotLimit)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	store := newFakeStore()
	store.matches = []storage.CatalogMatch{{Title: "Go Basics", Score: 0.9}}
	ci := New(&fakeEmbedder{}, store, nil)

	hits, err := ci.Search(context.Background(), "nothing similar", "go", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestGetCourseOutline(t *testing.T) {
	store := newFakeStore()
	store.entries["Go Basics"] = &storage.CatalogEntry{
		Title:   "Go Basics",
		Lessons: []storage.Lesson{{Number: 0, Title: "Intro"}},
	}
	store.matches = []storage.CatalogMatch{{Title: "Go Basics", Score: 0.9}}
	ci := New(&fakeEmbedder{}, store, nil)

	entry, err := ci.GetCourseOutline(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", entry.Title)
	assert.Len(t, entry.Lessons, 1)
}

func TestGetCourseOutlineCatalogError(t *testing.T) {
	store := newFakeStore()
	store.catalogErr = errors.New("store unreachable")
	ci := New(&fakeEmbedder{}, store, nil)

	_, err := ci.GetCourseOutline(context.Background(), "go")
	require.Error(t, err)
}
