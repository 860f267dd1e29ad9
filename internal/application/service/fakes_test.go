package service

import (
	"context"
	"sync"

	"kairos/internal/domain/entity"
)

type fakeProvider struct {
	mu        sync.Mutex
	tools     []entity.ToolDescriptor
	results   map[string]entity.ToolResult
	invokeErr error
	calls     []fakeCall
	shutdowns int
}

type fakeCall struct {
	Name string
	Args map[string]any
}

func (f *fakeProvider) ListTools(ctx context.Context) ([]entity.ToolDescriptor, error) {
	return f.tools, nil
}

func (f *fakeProvider) Invoke(ctx context.Context, name string, args map[string]any) (entity.ToolResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{Name: name, Args: args})
	if f.invokeErr != nil {
		return entity.ToolResult{}, f.invokeErr
	}
	if res, ok := f.results[name]; ok {
		return res, nil
	}
	return entity.ToolResult{Success: true, Content: "ok"}, nil
}

func (f *fakeProvider) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	return nil
}

func (f *fakeProvider) Shutdowns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}

func navigateDescriptor() entity.ToolDescriptor {
	return entity.ToolDescriptor{
		Name:          "browser_navigate",
		Documentation: "Navigate to a URL",
		Parameters: map[string]entity.ParamSchema{
			"url":     {Type: entity.ParamString, Required: true, Description: "The URL to open"},
			"timeout": {Type: entity.ParamInteger},
		},
	}
}
