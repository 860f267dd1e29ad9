package output

import (
	"context"

	"kairos/internal/domain/entity"
)

type ToolPort interface {
	Name() entity.ToolName
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, arguments string) (string, error)
}

type ToolRegistry interface {
	Register(tool ToolPort) error
	Get(name entity.ToolName) (ToolPort, bool)
	All() []ToolPort
	Definitions() []entity.ToolDefinition
}

// ToolProvider is one live connection to an external tool surface.
type ToolProvider interface {
	ListTools(ctx context.Context) ([]entity.ToolDescriptor, error)
	Invoke(ctx context.Context, name string, args map[string]any) (entity.ToolResult, error)
	Shutdown(ctx context.Context) error
}

// ToolProviderFactory opens a fresh provider connection for a session slot.
type ToolProviderFactory func(ctx context.Context, slot int) (ToolProvider, error)
