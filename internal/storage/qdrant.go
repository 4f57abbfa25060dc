package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Store wraps the Qdrant client with connection management and the two
// course collections: the catalog (one point per course, queried for
// fuzzy name resolution) and the content collection (one point per
// chunk, queried for semantic retrieval).
type Store struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewStore creates a Qdrant client and fails fast if the server is
// unreachable after a bounded retry window.
func NewStore(host string, port int) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &Store{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return s, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	b := newBackoff()
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureCollections creates the catalog and content collections with
// cosine-distance vectors and payload indexes if they do not exist.
// Idempotent - safe to call multiple times.
func (s *Store) EnsureCollections(ctx context.Context) error {
	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	if !present[CatalogCollection] {
		if err := s.createCatalogCollection(ctx); err != nil {
			return err
		}
	}
	if !present[ContentCollection] {
		if err := s.createContentCollection(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) createCatalogCollection(ctx context.Context) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CatalogCollection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create catalog collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CatalogCollection,
		FieldName:      "title",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for catalog title: %w", err)
	}
	return nil
}

func (s *Store) createContentCollection(ctx context.Context) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: ContentCollection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create content collection: %w", err)
	}

	// Without these indexes course/lesson filtering degrades badly.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: ContentCollection,
		FieldName:      "course_title",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for course_title: %w", err)
	}
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: ContentCollection,
		FieldName:      "lesson_number",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for lesson_number: %w", err)
	}
	return nil
}

// ClearCollections deletes and recreates both collections. Used by
// re-ingestion with clear_existing.
func (s *Store) ClearCollections(ctx context.Context) error {
	for _, name := range []string{CatalogCollection, ContentCollection} {
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", name, err)
		}
	}
	return s.EnsureCollections(ctx)
}

// upsertWithRetry performs an upsert with exponential backoff retry.
func (s *Store) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	b := newBackoff()
	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// catalogPointID derives a stable point id from the course title, so
// upserting the same course twice never creates a second catalog entry.
func catalogPointID(title string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("course:"+title)).String()
}

// UpsertCatalogEntry stores one catalog point for the course. The
// lesson list rides along as a JSON payload field so course outlines
// are answerable from the catalog alone.
func (s *Store) UpsertCatalogEntry(ctx context.Context, entry *CatalogEntry, vector []float32) error {
	if len(vector) != VectorDimension {
		return fmt.Errorf("%w: catalog vector has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	lessonsJSON, err := json.Marshal(entry.Lessons)
	if err != nil {
		return fmt.Errorf("failed to marshal lessons: %w", err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(catalogPointID(entry.Title)),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"title":      entry.Title,
			"link":       entry.Link,
			"instructor": entry.Instructor,
			"lessons":    string(lessonsJSON),
		}),
	}

	return s.upsertWithRetry(ctx, CatalogCollection, []*qdrant.PointStruct{point})
}

// HasCourse reports whether a course with exactly this title is cataloged.
func (s *Store) HasCourse(ctx context.Context, title string) (bool, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: CatalogCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("title", title)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(false),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check course existence: %w", err)
	}
	return len(results) > 0, nil
}

// GetCatalogEntry retrieves a catalog entry by exact title.
// Returns ErrCourseNotFound if no such course is cataloged.
func (s *Store) GetCatalogEntry(ctx context.Context, title string) (*CatalogEntry, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: CatalogCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("title", title)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrCourseNotFound
	}
	return entryFromPayload(results[0].Payload), nil
}

func entryFromPayload(payload map[string]*qdrant.Value) *CatalogEntry {
	entry := &CatalogEntry{
		Title:      payload["title"].GetStringValue(),
		Link:       payload["link"].GetStringValue(),
		Instructor: payload["instructor"].GetStringValue(),
	}
	if raw := payload["lessons"].GetStringValue(); raw != "" {
		// A catalog point written by this store always carries valid
		// JSON; a decode failure just leaves the lesson list empty.
		_ = json.Unmarshal([]byte(raw), &entry.Lessons)
	}
	return entry
}

// ListCourseTitles returns all cataloged titles in sorted-by-id scroll
// order, paging through the catalog collection.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	var titles []string
	var offset *qdrant.PointId

	batchSize := uint32(100)
	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CatalogCollection,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("title"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll catalog: %w", err)
		}

		for _, result := range results {
			if title := result.Payload["title"].GetStringValue(); title != "" {
				titles = append(titles, title)
			}
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	return titles, nil
}

// CatalogMatch is one scored hit from a catalog similarity search.
type CatalogMatch struct {
	Title string
	Score float64
}

// SearchCatalog performs nearest-neighbour search over catalog entries.
// The top match is accepted without a similarity threshold; typo and
// paraphrase tolerance comes from the embedding space.
func (s *Store) SearchCatalog(ctx context.Context, vector []float32, limit int) ([]CatalogMatch, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CatalogCollection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayloadInclude("title"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}

	matches := make([]CatalogMatch, 0, len(results))
	for _, result := range results {
		matches = append(matches, CatalogMatch{
			Title: result.Payload["title"].GetStringValue(),
			Score: float64(result.Score),
		})
	}
	return matches, nil
}

// UpsertChunks stores chunk embeddings in the content collection,
// batched in groups of 100.
func (s *Store) UpsertChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if len(chunk.Embedding) != VectorDimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), VectorDimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, chunk := range batch {
			payload := map[string]any{
				"content":        chunk.Text,
				"course_title":   chunk.CourseTitle,
				"sequence_index": chunk.SequenceIndex,
			}
			// Omitted entirely for course-level chunks so an integer
			// lesson filter never matches them.
			if chunk.LessonNumber != nil {
				payload["lesson_number"] = *chunk.LessonNumber
			}

			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(uuid.New().String()),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(payload),
			}
		}

		if err := s.upsertWithRetry(ctx, ContentCollection, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// SearchChunks performs vector similarity search over chunks. Filters
// narrow the candidate set before ranking: courseTitle is matched
// exactly (callers resolve fuzzy names via the catalog first), and
// lessonNumber restricts to one lesson when non-nil. Returns at most
// limit results ordered by descending score; zero hits is not an error.
func (s *Store) SearchChunks(ctx context.Context, vector []float32, limit int, courseTitle string, lessonNumber *int) ([]SearchResult, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	var must []*qdrant.Condition
	if courseTitle != "" {
		must = append(must, qdrant.NewMatch("course_title", courseTitle))
	}
	if lessonNumber != nil {
		must = append(must, qdrant.NewMatchInt("lesson_number", int64(*lessonNumber)))
	}

	var filter *qdrant.Filter
	if len(must) > 0 {
		filter = &qdrant.Filter{Must: must}
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ContentCollection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]SearchResult, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		hit := SearchResult{
			Content:     payload["content"].GetStringValue(),
			CourseTitle: payload["course_title"].GetStringValue(),
			Score:       float64(result.Score),
		}
		if v, ok := payload["lesson_number"]; ok {
			n := int(v.GetIntegerValue())
			hit.LessonNumber = &n
		}
		hits = append(hits, hit)
	}

	return hits, nil
}
