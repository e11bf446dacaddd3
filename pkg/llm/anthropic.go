package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const anthropicMaxTokens = 4096

// AnthropicClient provides tool-calling chat against the Anthropic API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates a client for the Anthropic API.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
		logger: logger.Named("llm"),
	}, nil
}

var _ ChatClient = (*AnthropicClient)(nil)

// ChatWithTools implements ChatClient.
func (c *AnthropicClient) ChatWithTools(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	messages, err := buildAnthropicMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	tools := make([]anthropic.ToolDefinition, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    req.System,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: anthropicMaxTokens,
	})
	if err != nil {
		c.logger.Error("chat request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	out := &ChatResponse{}
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			out.Content += block.GetText()
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.MessageContentToolUse.ID,
				Name:      block.MessageContentToolUse.Name,
				Arguments: string(block.MessageContentToolUse.Input),
			})
		}
	}

	c.logger.Info("chat request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Duration("elapsed", time.Since(start)))

	return out, nil
}

// GetModel implements ChatClient.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// buildAnthropicMessages converts generic history into Anthropic's content
// block form: assistant tool calls become tool_use blocks, tool-role
// messages become tool_result blocks inside a user message.
func buildAnthropicMessages(messages []ChatMessage) ([]anthropic.Message, error) {
	out := make([]anthropic.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserTextMessage(m.Content))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, anthropic.NewAssistantTextMessage(m.Content))
				continue
			}
			content := make([]anthropic.MessageContent, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(m.Content))
			}
			for _, tc := range m.ToolCalls {
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: json.RawMessage(tc.Arguments),
					},
				})
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
		case RoleTool:
			out = append(out, anthropic.NewToolResultsMessage(m.ToolCallID, m.Content, false))
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, nil
}
