package llm

import "kairos/internal/domain/entity"

type ProviderInfo struct {
	ID           entity.Provider `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	DefaultModel string          `json:"default_model"`
	ToolSupport  bool            `json:"tool_support"`
}

var providerDetails = map[entity.Provider][2]string{
	entity.ProviderClaudeVertex: {"Claude Vertex", "Anthropic Claude via Google Vertex AI"},
	entity.ProviderAnthropic:    {"Anthropic", "Anthropic Claude direct API"},
	entity.ProviderOpenAI:       {"OpenAI", "OpenAI chat completions"},
	entity.ProviderOpenRouter:   {"OpenRouter", "Any OpenRouter hosted model"},
}

// Describe lists every provider with the model it would use by default.
func (s Settings) Describe() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(entity.Providers))
	for _, p := range entity.Providers {
		d := providerDetails[p]
		out = append(out, ProviderInfo{
			ID:           p,
			Name:         d[0],
			Description:  d[1],
			DefaultModel: s.DefaultModel(p),
			ToolSupport:  true,
		})
	}
	return out
}
