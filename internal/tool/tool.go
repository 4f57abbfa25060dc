// Package tool defines the capability objects the model can invoke
// mid-conversation and the registry that dispatches them by name.
package tool

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnknownTool marks a model request for a tool name that was never
// registered. The orchestrator substitutes it into the tool-result slot
// instead of failing the query.
var ErrUnknownTool = errors.New("unknown tool")

// Definition is the declarative schema the model consumes to decide
// whether and how to invoke a tool.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Source identifies where a piece of retrieved content came from, for
// citation by the caller.
type Source struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	Snippet      string `json:"snippet"`
	Link         string `json:"link,omitempty"`
}

// Result is what a tool invocation produces: the text block fed back to
// the model, plus the structured sources behind it. Sources travel in
// the return value rather than as tool state, so the registry is the
// only owner of cross-call aggregation.
type Result struct {
	Content string
	Sources []Source
}

// Tool is the capability contract. Execute returns user-facing error
// text inside Result for domain failures (no matches, unknown course);
// a non-nil error means the invocation itself broke.
type Tool interface {
	Name() string
	Definition() Definition
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// Param describes a single tool parameter.
type Param struct {
	Type        string
	Description string
}

// Parameters builds a JSON Schema "parameters" object for a tool.
func Parameters(properties map[string]Param, required []string) map[string]any {
	props := make(map[string]any)
	for name, p := range properties {
		props[name] = map[string]any{"type": p.Type, "description": p.Description}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ArgString reads a string argument, tolerating absence.
func ArgString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, ok := args[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// ArgInt reads an optional integer argument. JSON numbers arrive as
// float64; nil means the argument was absent.
func ArgInt(args map[string]any, key string) *int {
	if args == nil {
		return nil
	}
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		i := n
		return &i
	case json.Number:
		if i64, err := n.Int64(); err == nil {
			i := int(i64)
			return &i
		}
	}
	return nil
}
