// Package rag wires retrieval, generation and session state into the
// single entry point the transport layer calls.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/course-rag-server/internal/ingest"
	"github.com/bull/course-rag-server/internal/tool"
)

// Answerer runs the two-phase generation protocol for one query.
type Answerer interface {
	Answer(ctx context.Context, query, history string) (string, error)
}

// SourceAggregator exposes the tool registry's per-query source state.
type SourceAggregator interface {
	ResetSources()
	LastSources() []tool.Source
}

// SessionStore is the conversational-memory contract.
type SessionStore interface {
	GetOrCreate(id string) string
	History(id string) string
	Append(id, query, answer string)
}

// TitleLister enumerates the cataloged course titles for analytics.
type TitleLister interface {
	ListCourseTitles(ctx context.Context) ([]string, error)
}

// Response is one answered query with its citations.
type Response struct {
	Answer    string
	Sources   []tool.Source
	SessionID string
}

// Analytics summarizes the indexed corpus.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// Coordinator orchestrates one query end to end: session history in,
// generation with tool dispatch, sources out, exchange recorded.
type Coordinator struct {
	answerer Answerer
	sources  SourceAggregator
	sessions SessionStore
	titles   TitleLister
	pipeline *ingest.Pipeline
	logger   *slog.Logger
}

// New creates a Coordinator.
func New(answerer Answerer, sources SourceAggregator, sessions SessionStore, titles TitleLister, pipeline *ingest.Pipeline, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		answerer: answerer,
		sources:  sources,
		sessions: sessions,
		titles:   titles,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Query answers one user query. The source aggregate is reset before
// generation so the returned sources belong to this query alone, and
// the exchange is recorded only on success.
func (c *Coordinator) Query(ctx context.Context, query, sessionID string) (*Response, error) {
	sessionID = c.sessions.GetOrCreate(sessionID)
	history := c.sessions.History(sessionID)

	c.sources.ResetSources()

	answer, err := c.answerer.Answer(ctx, query, history)
	if err != nil {
		return nil, fmt.Errorf("answer query: %w", err)
	}

	c.sessions.Append(sessionID, query, answer)

	return &Response{
		Answer:    answer,
		Sources:   c.sources.LastSources(),
		SessionID: sessionID,
	}, nil
}

// CourseAnalytics reports how many courses are indexed and their titles.
func (c *Coordinator) CourseAnalytics(ctx context.Context) (*Analytics, error) {
	titles, err := c.titles.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	return &Analytics{
		TotalCourses: len(titles),
		CourseTitles: titles,
	}, nil
}

// IngestFolder ingests every course document under dir.
func (c *Coordinator) IngestFolder(ctx context.Context, dir string, clear bool) (*ingest.Result, error) {
	return c.pipeline.IngestFolder(ctx, dir, clear)
}

// IngestDocument ingests a single course document.
func (c *Coordinator) IngestDocument(ctx context.Context, path string) (int, bool, error) {
	return c.pipeline.IngestDocument(ctx, path)
}
