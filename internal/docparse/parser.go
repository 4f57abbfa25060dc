// Package docparse turns structured course documents into course
// metadata and context-enriched text chunks.
//
// Documents follow a fixed plain-text grammar: a header block with
// "Course Title:" (required), "Course Link:" and "Course Instructor:"
// (optional), followed by repeated "Lesson N: <title>" blocks, each
// optionally opening with a "Lesson Link:" line before its body text.
package docparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bull/course-rag-server/internal/storage"
)

// ErrMalformedDocument marks a document that does not conform to the
// course grammar. A folder ingest isolates the document and continues.
var ErrMalformedDocument = errors.New("malformed course document")

const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

var lessonHeader = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Section is one chunkable region of a document: a lesson body, or
// course-level text appearing before the first lesson (Lesson nil).
type Section struct {
	Lesson *storage.Lesson
	Body   string
}

// ParseDocument parses a course document into its course metadata and
// ordered sections. It is a pure transformation; ingestion side effects
// live at the pipeline/storage boundary.
func ParseDocument(text string) (*storage.Course, []Section, error) {
	lines := strings.Split(text, "\n")

	course := &storage.Course{}
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if lessonHeader.MatchString(line) {
			break
		}
		switch {
		case strings.HasPrefix(line, titlePrefix):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, titlePrefix))
		case strings.HasPrefix(line, linkPrefix):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, linkPrefix))
		case strings.HasPrefix(line, instructorPrefix):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorPrefix))
		}
	}

	if course.Title == "" {
		return nil, nil, fmt.Errorf("%w: missing %q header", ErrMalformedDocument, titlePrefix)
	}

	// Course-level text between the header block and the first lesson.
	var sections []Section
	preamble := collectBody(lines, headerEnd(lines, i), i)
	if preamble != "" {
		sections = append(sections, Section{Body: preamble})
	}

	seen := make(map[int]bool)
	for i < len(lines) {
		m := lessonHeader.FindStringSubmatch(strings.TrimSpace(lines[i]))
		number, _ := strconv.Atoi(m[1])
		if seen[number] {
			return nil, nil, fmt.Errorf("%w: duplicate lesson number %d", ErrMalformedDocument, number)
		}
		seen[number] = true

		lesson := &storage.Lesson{
			Number: number,
			Title:  strings.TrimSpace(m[2]),
		}

		bodyStart := i + 1
		if j := firstNonBlank(lines, bodyStart); j >= 0 {
			if line := strings.TrimSpace(lines[j]); strings.HasPrefix(line, lessonLinkPrefix) {
				lesson.Link = strings.TrimSpace(strings.TrimPrefix(line, lessonLinkPrefix))
				bodyStart = j + 1
			}
		}

		next := nextLessonLine(lines, bodyStart)
		sections = append(sections, Section{
			Lesson: lesson,
			Body:   collectBody(lines, bodyStart, next),
		})
		i = next
	}

	for _, sec := range sections {
		if sec.Lesson != nil {
			course.Lessons = append(course.Lessons, *sec.Lesson)
		}
	}

	return course, sections, nil
}

// headerEnd returns the index of the first line after the recognized
// header prefixes, bounded by limit.
func headerEnd(lines []string, limit int) int {
	i := 0
	for i < limit {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, titlePrefix) ||
			strings.HasPrefix(line, linkPrefix) || strings.HasPrefix(line, instructorPrefix) {
			i++
			continue
		}
		break
	}
	return i
}

func firstNonBlank(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) != "" {
			return j
		}
	}
	return -1
}

func nextLessonLine(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if lessonHeader.MatchString(strings.TrimSpace(lines[j])) {
			return j
		}
	}
	return len(lines)
}

func collectBody(lines []string, from, to int) string {
	if from >= to {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[from:to], "\n"))
}
