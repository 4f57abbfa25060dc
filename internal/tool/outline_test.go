package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/course-rag-server/internal/storage"
)

type fakeFetcher struct {
	entry   *storage.CatalogEntry
	err     error
	gotName string
}

func (f *fakeFetcher) GetCourseOutline(_ context.Context, name string) (*storage.CatalogEntry, error) {
	f.gotName = name
	return f.entry, f.err
}

func TestOutlineToolExecute(t *testing.T) {
	fetcher := &fakeFetcher{entry: &storage.CatalogEntry{
		Title:      "Go Basics",
		Link:       "https://example.com/go-basics",
		Instructor: "Ada Lovelace",
		Lessons: []storage.Lesson{
			{Number: 0, Title: "Introduction"},
			{Number: 1, Title: "Variables"},
		},
	}}
	ot := NewOutlineTool(fetcher)

	result, err := ot.Execute(context.Background(), map[string]any{"course_title": "go"})
	require.NoError(t, err)
	assert.Equal(t, "go", fetcher.gotName)

	want := "Course: Go Basics\n" +
		"Course Link: https://example.com/go-basics\n" +
		"Instructor: Ada Lovelace\n" +
		"Lessons (2):\n" +
		"  0. Introduction\n" +
		"  1. Variables\n"
	assert.Equal(t, want, result.Content)

	require.Len(t, result.Sources, 1)
	assert.Equal(t, "Go Basics", result.Sources[0].CourseTitle)
	assert.Equal(t, "https://example.com/go-basics", result.Sources[0].Link)
}

func TestOutlineToolOmitsEmptyHeaderFields(t *testing.T) {
	fetcher := &fakeFetcher{entry: &storage.CatalogEntry{Title: "Bare"}}
	ot := NewOutlineTool(fetcher)

	result, err := ot.Execute(context.Background(), map[string]any{"course_title": "bare"})
	require.NoError(t, err)
	assert.Equal(t, "Course: Bare\nLessons (0):\n", result.Content)
}

func TestOutlineToolCourseNotFound(t *testing.T) {
	fetcher := &fakeFetcher{err: storage.ErrCourseNotFound}
	ot := NewOutlineTool(fetcher)

	result, err := ot.Execute(context.Background(), map[string]any{"course_title": "Missing"})
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Missing'", result.Content)
}

func TestOutlineToolStorageError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	ot := NewOutlineTool(fetcher)

	_, err := ot.Execute(context.Background(), map[string]any{"course_title": "x"})
	require.Error(t, err)
}

func TestOutlineToolDefinition(t *testing.T) {
	ot := NewOutlineTool(&fakeFetcher{})
	def := ot.Definition()

	assert.Equal(t, "get_course_outline", def.Name)
	assert.Equal(t, []string{"course_title"}, def.Parameters["required"])
}
