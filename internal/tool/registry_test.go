package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name   string
	result Result
	err    error
	calls  int
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Definition() Definition {
	return Definition{Name: s.name, Parameters: Parameters(nil, nil)}
}

func (s *stubTool) Execute(context.Context, map[string]any) (Result, error) {
	s.calls++
	return s.result, s.err
}

func TestRegistryDefinitionsInRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubTool{name: "search_course_content"})
	r.Register(&stubTool{name: "get_course_outline"})

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "search_course_content", defs[0].Name)
	assert.Equal(t, "get_course_outline", defs[1].Name)
}

func TestRegistryExecute(t *testing.T) {
	st := &stubTool{name: "t", result: Result{Content: "hello"}}
	r := NewRegistry(nil)
	r.Register(st)

	result, err := r.Execute(context.Background(), "t", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Content)
	assert.Equal(t, 1, st.calls)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Execute(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistrySourceAggregation(t *testing.T) {
	first := &stubTool{name: "a", result: Result{
		Content: "a",
		Sources: []Source{{CourseTitle: "Course A"}},
	}}
	second := &stubTool{name: "b", result: Result{
		Content: "b",
		Sources: []Source{{CourseTitle: "Course B"}},
	}}
	r := NewRegistry(nil)
	r.Register(first)
	r.Register(second)

	_, err := r.Execute(context.Background(), "a", nil)
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), "b", nil)
	require.NoError(t, err)

	// Most recent invocation first.
	sources := r.LastSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "Course B", sources[0].CourseTitle)
	assert.Equal(t, "Course A", sources[1].CourseTitle)
}

func TestRegistryResetSources(t *testing.T) {
	st := &stubTool{name: "t", result: Result{
		Content: "x",
		Sources: []Source{{CourseTitle: "C"}},
	}}
	r := NewRegistry(nil)
	r.Register(st)

	_, err := r.Execute(context.Background(), "t", nil)
	require.NoError(t, err)
	require.Len(t, r.LastSources(), 1)

	r.ResetSources()
	assert.Empty(t, r.LastSources())
}

func TestRegistryFailedExecutionAddsNoSources(t *testing.T) {
	st := &stubTool{name: "t", err: errors.New("boom")}
	r := NewRegistry(nil)
	r.Register(st)

	_, err := r.Execute(context.Background(), "t", nil)
	require.Error(t, err)
	assert.Empty(t, r.LastSources())
}
