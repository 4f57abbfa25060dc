package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openai/openai-go"
)

// OpenAIProvider implements Provider on the OpenAI chat completions
// API. Temperature is pinned to 0 for reproducible answers.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIProvider creates a provider for the given model. The API key
// is read from OPENAI_API_KEY by the SDK.
func NewOpenAIProvider(model string, maxTokens int) (*OpenAIProvider, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if model == "" {
		model = "gpt-4o"
	}
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &OpenAIProvider{
		client:    openai.NewClient(),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate issues one chat completion and normalizes the outcome to the
// protocol's two stop conditions.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		MaxTokens:   openai.Int(int64(p.maxTokens)),
		Temperature: openai.Float(0),
		Messages:    buildMessages(req),
	}

	for _, def := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.Parameters),
			},
		})
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	reply := &Reply{
		StopReason: StopEnd,
		Content:    choice.Message.Content,
	}

	if choice.FinishReason == "tool_calls" || len(choice.Message.ToolCalls) > 0 {
		reply.StopReason = StopToolUse
		for _, tc := range choice.Message.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil || args == nil {
				args = make(map[string]any)
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			})
		}
	}

	return reply, nil
}

func buildMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			if len(m.ToolCalls) > 0 {
				messages = append(messages, assistantToolCallMessage(m))
			} else {
				messages = append(messages, openai.AssistantMessage(m.Content))
			}
		case RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

// assistantToolCallMessage replays the model's tool-request turn on the
// follow-up call, which the API requires before tool results.
func assistantToolCallMessage(m Message) openai.ChatCompletionMessageParamUnion {
	asst := openai.ChatCompletionAssistantMessageParam{}
	for _, tc := range m.ToolCalls {
		args, err := json.Marshal(tc.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: string(args),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}
