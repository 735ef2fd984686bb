package phase

import (
	"context"

	"codenerd/internal/llm"
)

// LLMClientAdapter adapts an *llm.Client to the Runner's narrow
// LLMCaller interface, translating between the phase package's local
// message/tool shapes and the llm package's wire-oriented ones.
type LLMClientAdapter struct {
	Client *llm.Client
}

// ModelFor delegates to the underlying client.
func (a LLMClientAdapter) ModelFor(ctx context.Context, role string) (string, string, error) {
	return a.Client.ModelFor(ctx, role)
}

// Chat translates ChatMessage/ToolDescriptor into llm.Message/llm.ToolSpec,
// calls the client, and translates the response back.
func (a LLMClientAdapter) Chat(ctx context.Context, server, model string, messages []ChatMessage, toolDescs []ToolDescriptor) (ChatResult, error) {
	wireMessages := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		wireMessages = append(wireMessages, llm.Message{Role: m.Role, Content: m.Content})
	}

	wireTools := make([]llm.ToolSpec, 0, len(toolDescs))
	for _, t := range toolDescs {
		wireTools = append(wireTools, llm.ToolSpec{
			Type: "function",
			Function: llm.FunctionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := a.Client.Chat(ctx, server, model, wireMessages, wireTools)
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Content: resp.Content, ToolCalls: resp.ToolCalls}, nil
}
