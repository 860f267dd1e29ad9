package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/llm/claude"
	"kairos/internal/infrastructure/llm/openaicompat"
)

func TestSettings_DefaultModel(t *testing.T) {
	s := Settings{OpenRouterModel: "meta-llama/llama-3.1-70b-instruct"}

	assert.Equal(t, "claude-sonnet-4@20250514", s.DefaultModel(entity.ProviderClaudeVertex))
	assert.Equal(t, "claude-sonnet-4-20250514", s.DefaultModel(entity.ProviderAnthropic))
	assert.Equal(t, "gpt-4o", s.DefaultModel(entity.ProviderOpenAI))
	assert.Equal(t, "meta-llama/llama-3.1-70b-instruct", s.DefaultModel(entity.ProviderOpenRouter))

	s.VertexModel = "claude-opus-4@20250514"
	assert.Equal(t, "claude-opus-4@20250514", s.DefaultModel(entity.ProviderClaudeVertex))
}

func TestNewFactory(t *testing.T) {
	factory := NewFactory(context.Background(), Settings{
		OpenAIAPIKey:     "sk-test",
		OpenRouterAPIKey: "or-test",
		OpenRouterModel:  "openai/gpt-4o",
		AnthropicAPIKey:  "ant-test",
	})

	llm, err := factory(entity.ProviderOpenAI, "")
	require.NoError(t, err)
	assert.IsType(t, &openaicompat.Adapter{}, llm)

	llm, err = factory(entity.ProviderOpenRouter, "")
	require.NoError(t, err)
	assert.IsType(t, &openaicompat.Adapter{}, llm)

	llm, err = factory(entity.ProviderAnthropic, "claude-3-5-haiku-latest")
	require.NoError(t, err)
	assert.IsType(t, &claude.Adapter{}, llm)
}

func TestNewFactory_Errors(t *testing.T) {
	factory := NewFactory(context.Background(), Settings{})

	_, err := factory(entity.ProviderOpenAI, "")
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	_, err = factory(entity.ProviderOpenRouter, "")
	assert.ErrorContains(t, err, "no model configured")

	_, err = factory(entity.ProviderAnthropic, "")
	assert.Error(t, err)

	_, err = factory(entity.ProviderClaudeVertex, "")
	assert.ErrorContains(t, err, "region and project")

	_, err = factory("gemini", "gemini-pro")
	assert.ErrorIs(t, err, entity.ErrUnsupportedProvider)
}

func TestSettings_Describe(t *testing.T) {
	infos := Settings{OpenRouterModel: "meta-llama/llama-3.1-70b-instruct"}.Describe()

	require.Len(t, infos, len(entity.Providers))
	byID := map[entity.Provider]ProviderInfo{}
	for _, info := range infos {
		assert.NotEmpty(t, info.Name)
		byID[info.ID] = info
	}
	assert.Equal(t, "claude-sonnet-4@20250514", byID[entity.ProviderClaudeVertex].DefaultModel)
	assert.Equal(t, "meta-llama/llama-3.1-70b-instruct", byID[entity.ProviderOpenRouter].DefaultModel)
}
