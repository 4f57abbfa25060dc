// Package generation drives the two-phase model protocol: a first call
// that may request retrieval, and a follow-up call that synthesizes the
// final answer from the tool results.
package generation

import (
	"context"

	"github.com/bull/course-rag-server/internal/tool"
)

// StopReason is the model's stated stop condition after a call.
type StopReason string

const (
	// StopEnd means the model completed a direct answer.
	StopEnd StopReason = "end"
	// StopToolUse means the model requested one or more tool invocations.
	StopToolUse StopReason = "tool_use"
)

// Role identifies who produced a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one named invocation the model requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is one turn of the conversation payload. Assistant turns may
// carry tool calls; tool turns carry the result for one call id.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall // assistant turns only
	ToolCallID string     // tool turns only
}

// Request is one generation call.
type Request struct {
	System   string
	Messages []Message
	// Tools, when non-empty, are offered to the model. The follow-up
	// call omits them to cap the protocol at one retrieval round.
	Tools []tool.Definition
}

// Reply is the model's response, normalized to the two stop conditions
// the protocol distinguishes.
type Reply struct {
	StopReason StopReason
	Content    string
	ToolCalls  []ToolCall
}

// Provider is the opaque LLM capability contract. A call either
// completes or fails; there is no partial result.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Reply, error)
}
