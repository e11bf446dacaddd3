package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
	"github.com/fleetlens/mrrpv-engine/pkg/conversation"
	"github.com/fleetlens/mrrpv-engine/pkg/llm"
	"github.com/fleetlens/mrrpv-engine/pkg/metrics"
	"github.com/fleetlens/mrrpv-engine/pkg/reconcile"
)

// maxToolRounds bounds how many tool-call rounds a single turn may take.
// The model occasionally retries after a correctable tool failure; anything
// past a few rounds is a loop.
const maxToolRounds = 4

// ChatService runs the conversational loop: one user utterance in, one
// grounded reply out, with the metric tool as the model's only way to
// produce numbers.
type ChatService struct {
	client  llm.ChatClient
	tool    *MetricsToolExecutor
	presets *metrics.PresetStore
	store   *conversation.Store
	limiter *conversation.RateLimiter
	usage   UsageRecorder
	logger  *zap.Logger
}

// NewChatService creates a ChatService. usage may be nil.
func NewChatService(client llm.ChatClient, tool *MetricsToolExecutor, presets *metrics.PresetStore, store *conversation.Store, limiter *conversation.RateLimiter, usage UsageRecorder, logger *zap.Logger) *ChatService {
	if usage == nil {
		usage = NoopUsageRecorder{}
	}
	return &ChatService{
		client:  client,
		tool:    tool,
		presets: presets,
		store:   store,
		limiter: limiter,
		usage:   usage,
		logger:  logger.Named("chat"),
	}
}

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	ConversationID  string               `json:"conversation_id"`
	Reply           string               `json:"reply"`
	EffectiveParams *metrics.QueryParams `json:"effective_params,omitempty"`
	Result          *metrics.Result      `json:"result,omitempty"`
	Outcome         *reconcile.Outcome   `json:"outcome,omitempty"`
}

// RunTurn processes one user utterance. An empty conversationID starts a new
// conversation. The stored view only advances when a metric query actually
// succeeded this turn.
func (s *ChatService) RunTurn(ctx context.Context, conversationID, utterance string) (*TurnResult, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, &apperrors.InvalidParameterError{Field: "utterance", Value: "", Allowed: []string{"non-empty text"}}
	}

	conv := s.store.GetOrCreate(conversationID)
	if s.limiter != nil && !s.limiter.Allow(conv.ID) {
		return nil, apperrors.ErrRateLimited
	}

	turn := s.tool.ForTurn(s.store.View(conv.ID), utterance)

	messages := append(s.store.History(conv.ID), llm.ChatMessage{
		Role:    llm.RoleUser,
		Content: utterance,
	})

	req := &llm.ChatRequest{
		System:   s.systemPrompt(),
		Messages: messages,
		Tools:    llm.GetMetricTools(s.presets.Keys(), metrics.SourceKeys()),
	}

	toolCalls := 0
	var reply string
	for round := 0; ; round++ {
		resp, err := s.client.ChatWithTools(ctx, req)
		if err != nil {
			s.usage.RecordTurn(conv.ID, toolCalls, false)
			return nil, fmt.Errorf("chat completion: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			reply = resp.Content
			break
		}
		if round >= maxToolRounds {
			s.logger.Warn("tool round limit reached", zap.String("conversation_id", conv.ID))
			reply = "I couldn't complete that query. Try narrowing the question or naming a specific quarter."
			break
		}

		req.Messages = append(req.Messages, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			toolCalls++
			output, err := turn.ExecuteTool(ctx, call.Name, call.Arguments)
			if err != nil {
				// Only non-correctable faults surface here.
				output = fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
			}
			s.logger.Debug("tool executed",
				zap.String("conversation_id", conv.ID),
				zap.String("tool", call.Name))
			req.Messages = append(req.Messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				Content:    output,
				ToolCallID: call.ID,
			})
		}
	}

	s.store.Append(conv.ID, llm.ChatMessage{Role: llm.RoleUser, Content: utterance})
	s.store.Append(conv.ID, llm.ChatMessage{Role: llm.RoleAssistant, Content: reply})
	if turn.EffectiveParams != nil {
		s.store.SetView(conv.ID, *turn.EffectiveParams)
	}

	s.usage.RecordTurn(conv.ID, toolCalls, turn.Result != nil)

	return &TurnResult{
		ConversationID:  conv.ID,
		Reply:           reply,
		EffectiveParams: turn.EffectiveParams,
		Result:          turn.Result,
		Outcome:         turn.Outcome,
	}, nil
}

func (s *ChatService) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a revenue metrics assistant for a fleet software business. ")
	b.WriteString("You answer questions about monthly recurring revenue per vehicle (MRR per vehicle).\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Every number in your answer must come from the ")
	b.WriteString(llm.MetricToolName)
	b.WriteString(" tool. Never estimate, extrapolate, or do arithmetic yourself.\n")
	b.WriteString("- When the user refines an earlier question, pass only the fields they changed; the engine carries the rest of the view forward.\n")
	b.WriteString("- If the tool returns an error, read the message: it lists the allowed values. Correct the arguments and retry once.\n")
	b.WriteString("- If the data cannot answer the question, say so plainly.\n\n")
	b.WriteString("Available presets: ")
	b.WriteString(strings.Join(s.presets.Keys(), ", "))
	b.WriteString("\nAvailable sources: ")
	b.WriteString(strings.Join(metrics.SourceKeys(), ", "))
	b.WriteString("\nQuarters use fiscal labels like \"FY26 Q2\".\n")
	return b.String()
}
