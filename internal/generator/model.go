package generator

import (
	"context"
	"fmt"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ModelConfig selects and configures a Model backend.
type ModelConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        float64
}

// NewModel builds the backend named by cfg.Provider.
func NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiModel(ctx, cfg)
	case ProviderOpenAI:
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return NewOpenAIModel(cfg), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
