package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bull/course-rag-server/internal/storage"
)

// snippetLen bounds how much chunk text a citation carries.
const snippetLen = 150

// ContentSearcher is the retrieval capability behind SearchTool,
// satisfied by index.CourseIndex.
type ContentSearcher interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) ([]storage.SearchResult, error)
}

// SearchTool lets the model search course content with optional fuzzy
// course-name and lesson-number filters.
type SearchTool struct {
	searcher   ContentSearcher
	maxResults int
}

// NewSearchTool creates a SearchTool returning at most maxResults hits.
func NewSearchTool(searcher ContentSearcher, maxResults int) *SearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchTool{
		searcher:   searcher,
		maxResults: maxResults,
	}
}

func (t *SearchTool) Name() string { return "search_course_content" }

func (t *SearchTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: Parameters(map[string]Param{
			"query": {
				Type:        "string",
				Description: "What to search for in the course content",
			},
			"course_name": {
				Type:        "string",
				Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": {
				Type:        "integer",
				Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		}, []string{"query"}),
	}
}

// Execute runs the search and formats hits into the text block the
// model sees, one annotated entry per result. Resolution failures and
// zero-hit searches come back as result text, never as errors, so the
// follow-up model call can respond gracefully.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	query := ArgString(args, "query")
	courseName := ArgString(args, "course_name")
	lessonNumber := ArgInt(args, "lesson_number")

	hits, err := t.searcher.Search(ctx, query, courseName, lessonNumber, t.maxResults)
	if err != nil {
		if errors.Is(err, storage.ErrCourseNotFound) {
			return Result{Content: fmt.Sprintf("No course found matching '%s'", courseName)}, nil
		}
		return Result{}, err
	}

	if len(hits) == 0 {
		return Result{Content: noContentMessage(courseName, lessonNumber)}, nil
	}

	var blocks []string
	sources := make([]Source, 0, len(hits))
	for _, hit := range hits {
		header := hit.CourseTitle
		if hit.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", header, *hit.LessonNumber)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, hit.Content))
		sources = append(sources, Source{
			CourseTitle:  hit.CourseTitle,
			LessonNumber: hit.LessonNumber,
			Snippet:      snippet(hit.Content),
		})
	}

	return Result{
		Content: strings.Join(blocks, "\n\n"),
		Sources: sources,
	}, nil
}

func noContentMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLen {
		return content
	}
	return string(runes[:snippetLen]) + "..."
}
