package llm

import "context"

// MockChatClient is a configurable mock for testing chat functionality.
// Set the function field to control behavior in tests.
type MockChatClient struct {
	// ChatWithToolsFunc is called when ChatWithTools is invoked.
	// If nil, returns an empty response and nil error.
	ChatWithToolsFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification.
	ChatWithToolsCalls []*ChatRequest
}

// NewMockChatClient creates a new mock with sensible defaults.
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{Model: "mock-model"}
}

// ChatWithTools implements ChatClient.
func (m *MockChatClient) ChatWithTools(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.ChatWithToolsCalls = append(m.ChatWithToolsCalls, req)
	if m.ChatWithToolsFunc != nil {
		return m.ChatWithToolsFunc(ctx, req)
	}
	return &ChatResponse{}, nil
}

// GetModel implements ChatClient.
func (m *MockChatClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

var _ ChatClient = (*MockChatClient)(nil)

// MockToolExecutor is a configurable mock for testing tool dispatch.
type MockToolExecutor struct {
	// ExecuteToolFunc is called when ExecuteTool is invoked.
	// If nil, returns "{}" and nil error.
	ExecuteToolFunc func(ctx context.Context, name string, arguments string) (string, error)

	// Call tracking.
	ExecuteToolCalls []MockToolCall
}

// MockToolCall records a call to ExecuteTool.
type MockToolCall struct {
	Name      string
	Arguments string
}

// ExecuteTool implements ToolExecutor.
func (m *MockToolExecutor) ExecuteTool(ctx context.Context, name string, arguments string) (string, error) {
	m.ExecuteToolCalls = append(m.ExecuteToolCalls, MockToolCall{Name: name, Arguments: arguments})
	if m.ExecuteToolFunc != nil {
		return m.ExecuteToolFunc(ctx, name, arguments)
	}
	return "{}", nil
}

var _ ToolExecutor = (*MockToolExecutor)(nil)
