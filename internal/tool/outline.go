package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bull/course-rag-server/internal/storage"
)

// OutlineFetcher resolves a course name and returns its catalog entry,
// satisfied by index.CourseIndex.
type OutlineFetcher interface {
	GetCourseOutline(ctx context.Context, name string) (*storage.CatalogEntry, error)
}

// OutlineTool answers course-structure queries: title, link,
// instructor and the full lesson list.
type OutlineTool struct {
	fetcher OutlineFetcher
}

// NewOutlineTool creates an OutlineTool.
func NewOutlineTool(fetcher OutlineFetcher) *OutlineTool {
	return &OutlineTool{fetcher: fetcher}
}

func (t *OutlineTool) Name() string { return "get_course_outline" }

func (t *OutlineTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Get the outline of a course: its title, link and complete lesson list",
		Parameters: Parameters(map[string]Param{
			"course_title": {
				Type:        "string",
				Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
		}, []string{"course_title"}),
	}
}

// Execute resolves the requested course and formats its outline.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	name := ArgString(args, "course_title")

	entry, err := t.fetcher.GetCourseOutline(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrCourseNotFound) {
			return Result{Content: fmt.Sprintf("No course found matching '%s'", name)}, nil
		}
		return Result{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", entry.Title)
	if entry.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", entry.Link)
	}
	if entry.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", entry.Instructor)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(entry.Lessons))
	for _, lesson := range entry.Lessons {
		fmt.Fprintf(&b, "  %d. %s\n", lesson.Number, lesson.Title)
	}

	return Result{
		Content: b.String(),
		Sources: []Source{{
			CourseTitle: entry.Title,
			Snippet:     fmt.Sprintf("Course outline with %d lessons", len(entry.Lessons)),
			Link:        entry.Link,
		}},
	}, nil
}
