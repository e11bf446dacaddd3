// Package llm provides the language-model boundary: tool-calling chat
// clients for OpenAI-compatible and Anthropic endpoints behind one
// interface, plus the tool schema the engine exposes.
package llm

import "context"

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ChatRequest is a single chat completion request with tool support.
type ChatRequest struct {
	System      string
	Messages    []ChatMessage
	Tools       []ToolDefinition
	Temperature float64
}

// ChatResponse is the model's reply: either final text, or one or more tool
// invocations to dispatch (possibly alongside preamble text).
type ChatResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ChatClient is the opaque language-model call: messages plus tool schema
// in, text or tool invocations out. Use for dependency injection so tests
// can substitute a mock.
type ChatClient interface {
	ChatWithTools(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	GetModel() string
}

// ToolExecutor executes one named tool with JSON-encoded arguments and
// returns a JSON-encoded result for the model.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, name string, arguments string) (string, error)
}
