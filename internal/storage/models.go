package storage

// Course is the unit of ingestion. Identity is the title; ingesting a
// document whose title is already cataloged is a no-op.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson belongs to exactly one course. Numbers are unique within the
// course and ordering-significant.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// CatalogEntry is the per-course point in the catalog collection. Its
// vector embeds the title (and instructor) so imprecise course names
// resolve to the canonical title by nearest-neighbour search.
type CatalogEntry struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Chunk is the unit of semantic retrieval. Text already carries the
// "Course X Lesson N content:" enrichment prefix.
type Chunk struct {
	Text          string
	CourseTitle   string
	LessonNumber  *int // nil for course-level text outside any lesson
	SequenceIndex int
	Embedding     []float32
}

// SearchResult is produced per query and never persisted.
type SearchResult struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Score        float64
}

const (
	// CatalogCollection holds one point per course for name resolution.
	CatalogCollection = "course_catalog"

	// ContentCollection holds one point per chunk for semantic search.
	ContentCollection = "course_content"
)

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
