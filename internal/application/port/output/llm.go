package output

import (
	"context"

	"kairos/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDefinition
	Temperature float32
	MaxTokens   int
}

type ChatResponse struct {
	Message entity.Message
}

// LLMFactory builds the transport for a provider and model.
type LLMFactory func(provider entity.Provider, model string) (LLMPort, error)
