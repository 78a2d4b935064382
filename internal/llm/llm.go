package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"family-doctor/pkg/config"
)

// Prompt is a single-turn request: a system instruction plus one user message.
type Prompt struct {
	System string
	User   string
}

// Client is a text-generation backend.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	Close() error
}

// NewClient builds the client selected by cfg.LLM.Provider.
func NewClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Client, error) {
	switch cfg.LLM.Provider {
	case "gigachat":
		return NewGigaChatClient(ctx, &cfg.GigaChat, cfg.LLM.Temperature, logger)
	case "openai":
		return NewOpenAIClient(&cfg.OpenAI, cfg.LLM.Temperature, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
