package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/course-rag-server/internal/tool"
)

// scriptedProvider replays a fixed sequence of replies and records
// every request it receives.
type scriptedProvider struct {
	replies  []*Reply
	requests []Request
}

func (p *scriptedProvider) Generate(_ context.Context, req Request) (*Reply, error) {
	p.requests = append(p.requests, req)
	if len(p.requests) > len(p.replies) {
		return nil, errors.New("unexpected generation call")
	}
	return p.replies[len(p.requests)-1], nil
}

type fakeDispatcher struct {
	defs     []tool.Definition
	results  map[string]tool.Result
	errs     map[string]error
	executed []string
}

func (d *fakeDispatcher) Definitions() []tool.Definition { return d.defs }

func (d *fakeDispatcher) Execute(_ context.Context, name string, _ map[string]any) (tool.Result, error) {
	d.executed = append(d.executed, name)
	if err, ok := d.errs[name]; ok {
		return tool.Result{}, err
	}
	return d.results[name], nil
}

func TestAnswerDirect(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{StopReason: StopEnd, Content: "Paris is the capital of France."},
	}}
	dispatcher := &fakeDispatcher{defs: []tool.Definition{{Name: "search_course_content"}}}
	orch := NewOrchestrator(provider, dispatcher, nil)

	answer, err := orch.Answer(context.Background(), "What is the capital of France?", "")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", answer)

	// A direct answer is terminal after a single call.
	require.Len(t, provider.requests, 1)
	assert.Empty(t, dispatcher.executed)
	assert.Len(t, provider.requests[0].Tools, 1)
}

func TestAnswerWithToolRound(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{StopReason: StopToolUse, ToolCalls: []ToolCall{
			{ID: "call_1", Name: "search_course_content", Arguments: map[string]any{"query": "variables"}},
		}},
		{StopReason: StopEnd, Content: "Variables are covered in lesson 2."},
	}}
	dispatcher := &fakeDispatcher{
		defs:    []tool.Definition{{Name: "search_course_content"}},
		results: map[string]tool.Result{"search_course_content": {Content: "[Go Basics - Lesson 2]\nVariables..."}},
	}
	orch := NewOrchestrator(provider, dispatcher, nil)

	answer, err := orch.Answer(context.Background(), "Where are variables covered?", "")
	require.NoError(t, err)
	assert.Equal(t, "Variables are covered in lesson 2.", answer)

	require.Len(t, provider.requests, 2)
	assert.Equal(t, []string{"search_course_content"}, dispatcher.executed)

	// The follow-up call carries no tools and replays the full exchange.
	second := provider.requests[1]
	assert.Empty(t, second.Tools)
	require.Len(t, second.Messages, 3)
	assert.Equal(t, RoleUser, second.Messages[0].Role)
	assert.Equal(t, RoleAssistant, second.Messages[1].Role)
	assert.Equal(t, RoleTool, second.Messages[2].Role)
	assert.Equal(t, "call_1", second.Messages[2].ToolCallID)
}

func TestAnswerDispatchesBundledCallsInOrder(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{StopReason: StopToolUse, ToolCalls: []ToolCall{
			{ID: "call_1", Name: "get_course_outline", Arguments: map[string]any{"course_title": "Go"}},
			{ID: "call_2", Name: "search_course_content", Arguments: map[string]any{"query": "slices"}},
		}},
		{StopReason: StopEnd, Content: "done"},
	}}
	dispatcher := &fakeDispatcher{
		results: map[string]tool.Result{
			"get_course_outline":    {Content: "Course: Go"},
			"search_course_content": {Content: "[Go]\nSlices..."},
		},
	}
	orch := NewOrchestrator(provider, dispatcher, nil)

	_, err := orch.Answer(context.Background(), "outline and slices", "")
	require.NoError(t, err)

	// Bundled calls share the single round, dispatched in request order.
	assert.Equal(t, []string{"get_course_outline", "search_course_content"}, dispatcher.executed)
	require.Len(t, provider.requests, 2)
}

func TestAnswerSubstitutesToolFailure(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{StopReason: StopToolUse, ToolCalls: []ToolCall{
			{ID: "call_1", Name: "search_course_content", Arguments: map[string]any{"query": "x"}},
		}},
		{StopReason: StopEnd, Content: "recovered"},
	}}
	dispatcher := &fakeDispatcher{
		errs: map[string]error{"search_course_content": errors.New("vector store unreachable")},
	}
	orch := NewOrchestrator(provider, dispatcher, nil)

	answer, err := orch.Answer(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)

	second := provider.requests[1]
	require.Len(t, second.Messages, 3)
	assert.Contains(t, second.Messages[2].Content, "Tool execution failed: vector store unreachable")
}

func TestAnswerAppendsHistoryToSystemPrompt(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{StopReason: StopEnd, Content: "ok"},
	}}
	orch := NewOrchestrator(provider, &fakeDispatcher{}, nil)

	history := "User: hi\nAssistant: hello"
	_, err := orch.Answer(context.Background(), "next question", history)
	require.NoError(t, err)

	system := provider.requests[0].System
	assert.True(t, strings.Contains(system, "Previous conversation:"))
	assert.True(t, strings.HasSuffix(system, history))
}

func TestAnswerPropagatesProviderError(t *testing.T) {
	provider := &scriptedProvider{}
	orch := NewOrchestrator(provider, &fakeDispatcher{}, nil)

	_, err := orch.Answer(context.Background(), "q", "")
	require.Error(t, err)
}
