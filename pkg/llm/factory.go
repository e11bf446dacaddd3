package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider names accepted by NewChatClient.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewChatClient creates a chat client for the configured provider.
// An empty provider defaults to OpenAI-compatible, which also covers local
// endpoints like vLLM.
func NewChatClient(cfg *Config, logger *zap.Logger) (ChatClient, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (allowed: %s, %s)",
			cfg.Provider, ProviderOpenAI, ProviderAnthropic)
	}
}
