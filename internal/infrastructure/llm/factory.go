package llm

import (
	"context"
	"fmt"

	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/llm/claude"
	"kairos/internal/infrastructure/llm/openaicompat"
)

type Settings struct {
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenRouterAPIKey string
	OpenRouterModel  string
	AnthropicAPIKey  string

	// Vertex settings for claude_vertex.
	ProjectID   string
	Location    string
	VertexModel string

	Logger output.LoggerPort
}

var defaultModels = map[entity.Provider]string{
	entity.ProviderClaudeVertex: "claude-sonnet-4@20250514",
	entity.ProviderAnthropic:    "claude-sonnet-4-20250514",
	entity.ProviderOpenAI:       "gpt-4o",
}

// DefaultModel is the model used when a request does not name one.
func (s Settings) DefaultModel(provider entity.Provider) string {
	switch provider {
	case entity.ProviderOpenRouter:
		return s.OpenRouterModel
	case entity.ProviderClaudeVertex:
		if s.VertexModel != "" {
			return s.VertexModel
		}
	}
	return defaultModels[provider]
}

// NewFactory returns an output.LLMFactory backed by the configured transports.
func NewFactory(ctx context.Context, s Settings) output.LLMFactory {
	return func(provider entity.Provider, model string) (output.LLMPort, error) {
		if model == "" {
			model = s.DefaultModel(provider)
		}
		if model == "" {
			return nil, fmt.Errorf("no model configured for provider %s", provider)
		}

		switch provider {
		case entity.ProviderOpenAI:
			if s.OpenAIAPIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY is not set")
			}
			cfg := openaicompat.OpenAIConfig(s.OpenAIAPIKey, model)
			cfg.BaseURL = s.OpenAIBaseURL
			cfg.Logger = s.Logger
			return openaicompat.NewAdapter(cfg), nil

		case entity.ProviderOpenRouter:
			if s.OpenRouterAPIKey == "" {
				return nil, fmt.Errorf("OPENROUTER_API_KEY is not set")
			}
			cfg := openaicompat.OpenRouterConfig(s.OpenRouterAPIKey, model)
			cfg.Logger = s.Logger
			return openaicompat.NewAdapter(cfg), nil

		case entity.ProviderAnthropic:
			return claude.NewAdapter(ctx, claude.Config{
				APIKey: s.AnthropicAPIKey,
				Model:  model,
				Logger: s.Logger,
			})

		case entity.ProviderClaudeVertex:
			return claude.NewAdapter(ctx, claude.Config{
				Model:     model,
				Vertex:    true,
				Region:    s.Location,
				ProjectID: s.ProjectID,
				Logger:    s.Logger,
			})
		}

		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedProvider, provider)
	}
}
