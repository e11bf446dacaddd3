package services

import "go.uber.org/zap"

// UsageRecorder receives one record per completed conversational turn.
type UsageRecorder interface {
	RecordTurn(conversationID string, toolCalls int, succeeded bool)
}

// LogUsageRecorder writes turn usage to the structured log.
type LogUsageRecorder struct {
	logger *zap.Logger
}

func NewLogUsageRecorder(logger *zap.Logger) *LogUsageRecorder {
	return &LogUsageRecorder{logger: logger.Named("usage")}
}

func (r *LogUsageRecorder) RecordTurn(conversationID string, toolCalls int, succeeded bool) {
	r.logger.Info("turn completed",
		zap.String("conversation_id", conversationID),
		zap.Int("tool_calls", toolCalls),
		zap.Bool("succeeded", succeeded))
}

// NoopUsageRecorder discards usage records.
type NoopUsageRecorder struct{}

func (NoopUsageRecorder) RecordTurn(string, int, bool) {}

var (
	_ UsageRecorder = (*LogUsageRecorder)(nil)
	_ UsageRecorder = NoopUsageRecorder{}
)
