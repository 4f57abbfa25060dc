package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/course-rag-server/internal/tool"
)

// systemPrompt directs the model to decide retrieval necessity itself
// and to answer without meta-commentary.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to tools for course information.

Available Tools:
1. get_course_outline: Use for queries about course structure, overview, or lesson list
2. search_course_content: Use for queries about specific content within courses or lessons

Tool Usage Guidelines:
- One tool round per query: decide up front whether retrieval is needed, then answer from the results
- General knowledge questions: answer from existing knowledge without tools
- If a tool yields no results, state this clearly without speculation
- No meta-commentary: provide direct answers only; do not mention tools or search results

All responses must be brief, educational, clear and example-supported when it aids understanding.
Provide only the direct answer to what was asked.`

// state of the two-phase protocol. Modeled explicitly so each
// transition is testable in isolation with a mocked provider.
type state int

const (
	stateInit state = iota
	stateAwaitingFirst
	stateDispatching
	stateAwaitingFinal
	stateDone
)

// dispatcher is the slice of the tool registry the orchestrator needs.
type dispatcher interface {
	Definitions() []tool.Definition
	Execute(ctx context.Context, name string, args map[string]any) (tool.Result, error)
}

// Orchestrator runs the two-phase protocol against a Provider: the
// first call offers tool schemas and may terminate directly; if the
// model requests tools they are dispatched synchronously in request
// order, and a second call without tools produces the final answer.
type Orchestrator struct {
	provider Provider
	tools    dispatcher
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(provider Provider, tools dispatcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		provider: provider,
		tools:    tools,
		logger:   logger,
	}
}

// Answer produces the final answer for one query. history is the
// formatted prior-exchange context ("" for a fresh session).
func (o *Orchestrator) Answer(ctx context.Context, query, history string) (string, error) {
	var (
		st       = stateInit
		system   string
		messages []Message
		first    *Reply
		answer   string
	)

	for st != stateDone {
		switch st {
		case stateInit:
			system = systemPrompt
			if history != "" {
				system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, history)
			}
			messages = []Message{{Role: RoleUser, Content: query}}
			st = stateAwaitingFirst

		case stateAwaitingFirst:
			reply, err := o.provider.Generate(ctx, Request{
				System:   system,
				Messages: messages,
				Tools:    o.tools.Definitions(),
			})
			if err != nil {
				return "", fmt.Errorf("first generation call: %w", err)
			}
			if reply.StopReason == StopEnd {
				// Direct answer, terminal: no second call.
				answer = reply.Content
				st = stateDone
				break
			}
			first = reply
			st = stateDispatching

		case stateDispatching:
			messages = append(messages, Message{
				Role:      RoleAssistant,
				Content:   first.Content,
				ToolCalls: first.ToolCalls,
			})
			for _, tc := range first.ToolCalls {
				messages = append(messages, Message{
					Role:       RoleTool,
					Content:    o.dispatch(ctx, tc),
					ToolCallID: tc.ID,
				})
			}
			st = stateAwaitingFinal

		case stateAwaitingFinal:
			// No tools on the follow-up call: the protocol caps the
			// interaction at exactly one retrieval round.
			reply, err := o.provider.Generate(ctx, Request{
				System:   system,
				Messages: messages,
			})
			if err != nil {
				return "", fmt.Errorf("final generation call: %w", err)
			}
			answer = reply.Content
			st = stateDone
		}
	}

	return answer, nil
}

// dispatch executes one tool call, blocking. A failing call's error
// text becomes that call's result so the second model call can still
// proceed and recover.
func (o *Orchestrator) dispatch(ctx context.Context, tc ToolCall) string {
	result, err := o.tools.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		o.logger.Warn("tool execution failed", "tool", tc.Name, "error", err)
		return fmt.Sprintf("Tool execution failed: %v", err)
	}
	return result.Content
}
