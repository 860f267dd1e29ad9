package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/entity"
)

func TestNewTool_BuildsSchema(t *testing.T) {
	desc := navigateDescriptor()
	desc.Parameters["tags"] = entity.ParamSchema{Type: entity.ParamArray}
	desc.Parameters["mode"] = entity.ParamSchema{Type: "enum-ish"}

	tool, err := NewTool(desc, &fakeProvider{}, 0, NewNormalizer(t.TempDir()), 0)
	require.NoError(t, err)

	params := tool.Parameters()
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"url"}, params["required"])

	props := params["properties"].(map[string]interface{})
	assert.Equal(t, "string", props["url"].(map[string]interface{})["type"])
	assert.Equal(t, "The URL to open", props["url"].(map[string]interface{})["description"])
	assert.Equal(t, "integer", props["timeout"].(map[string]interface{})["type"])
	assert.Equal(t, "array", props["tags"].(map[string]interface{})["type"])
	assert.Contains(t, props["tags"].(map[string]interface{}), "items")
	assert.Equal(t, "string", props["mode"].(map[string]interface{})["type"])
}

func TestNewTool_RejectsEmptyName(t *testing.T) {
	_, err := NewTool(entity.ToolDescriptor{}, &fakeProvider{}, 0, NewNormalizer(""), 0)
	assert.Error(t, err)
}

func TestTool_Description(t *testing.T) {
	tool, err := NewTool(entity.ToolDescriptor{Name: "browser_tabs"}, &fakeProvider{}, 0, NewNormalizer(""), 0)
	require.NoError(t, err)
	assert.Contains(t, tool.Description(), "browser_tabs")

	tool, err = NewTool(navigateDescriptor(), &fakeProvider{}, 0, NewNormalizer(""), 0)
	require.NoError(t, err)
	assert.Equal(t, "Navigate to a URL", tool.Description())
}

func TestTool_Validate(t *testing.T) {
	tool, err := NewTool(navigateDescriptor(), &fakeProvider{}, 0, NewNormalizer(""), 0)
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    map[string]any
		want    map[string]any
		wantErr string
	}{
		{
			name: "valid",
			args: map[string]any{"url": "https://example.test"},
			want: map[string]any{"url": "https://example.test"},
		},
		{
			name: "undeclared fields dropped",
			args: map[string]any{"url": "https://example.test", "extra": true},
			want: map[string]any{"url": "https://example.test"},
		},
		{
			name:    "missing required",
			args:    map[string]any{"timeout": float64(5)},
			wantErr: "url",
		},
		{
			name:    "wrong type",
			args:    map[string]any{"url": 42.0},
			wantErr: "/url",
		},
		{
			name:    "integer rejects fraction",
			args:    map[string]any{"url": "https://example.test", "timeout": 1.5},
			wantErr: "/timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tool.Validate(tt.args)
			if tt.wantErr != "" {
				var verr *entity.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "browser_navigate", verr.Tool)
				assert.NotEmpty(t, verr.Issues)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTool_Execute_Success(t *testing.T) {
	provider := &fakeProvider{
		results: map[string]entity.ToolResult{
			"browser_navigate": {Success: true, Content: []any{entity.TextContent{Text: "Page loaded"}}},
		},
	}
	tool, err := NewTool(navigateDescriptor(), provider, 1, NewNormalizer(t.TempDir()), 0)
	require.NoError(t, err)

	out, err := tool.Execute(context.Background(), `{"url":"https://example.test","noise":1}`)
	require.NoError(t, err)
	assert.Equal(t, `["Page loaded"]`, out)

	require.Len(t, provider.calls, 1)
	assert.Equal(t, "browser_navigate", provider.calls[0].Name)
	assert.Equal(t, map[string]any{"url": "https://example.test"}, provider.calls[0].Args)
}

func TestTool_Execute_InvalidJSON(t *testing.T) {
	provider := &fakeProvider{}
	tool, err := NewTool(navigateDescriptor(), provider, 0, NewNormalizer(""), 0)
	require.NoError(t, err)

	_, err = tool.Execute(context.Background(), `not json`)
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, provider.calls)
}

func TestTool_Execute_EmptyArguments(t *testing.T) {
	tool, err := NewTool(entity.ToolDescriptor{Name: "browser_snapshot"}, &fakeProvider{}, 0, NewNormalizer(""), 0)
	require.NoError(t, err)

	out, err := tool.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, out)
}

func TestTool_Execute_ProviderFailure(t *testing.T) {
	provider := &fakeProvider{
		results: map[string]entity.ToolResult{
			"browser_navigate": {Success: false, Error: "net::ERR_NAME_NOT_RESOLVED"},
		},
	}
	tool, err := NewTool(navigateDescriptor(), provider, 1, NewNormalizer(""), 0)
	require.NoError(t, err)

	_, err = tool.Execute(context.Background(), `{"url":"https://nowhere.test"}`)
	var ierr *entity.ToolInvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "browser_navigate", ierr.Tool)
	assert.Equal(t, 1, ierr.Slot)
	assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", ierr.Message)
}

func TestTool_Execute_TransportError(t *testing.T) {
	provider := &fakeProvider{invokeErr: errors.New("broken pipe")}
	tool, err := NewTool(navigateDescriptor(), provider, 0, NewNormalizer(""), 0)
	require.NoError(t, err)

	_, err = tool.Execute(context.Background(), `{"url":"https://example.test"}`)
	var ierr *entity.ToolInvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Message, "broken pipe")
}

func TestTool_Execute_Truncates(t *testing.T) {
	provider := &fakeProvider{
		results: map[string]entity.ToolResult{
			"browser_navigate": {Success: true, Content: strings.Repeat("a", 100)},
		},
	}
	tool, err := NewTool(navigateDescriptor(), provider, 0, NewNormalizer(""), 20)
	require.NoError(t, err)

	out, err := tool.Execute(context.Background(), `{"url":"https://example.test"}`)
	require.NoError(t, err)
	assert.Equal(t, `"`+strings.Repeat("a", 19)+TruncationMarker, out)
}

func TestBuildCatalog(t *testing.T) {
	descs := []entity.ToolDescriptor{
		navigateDescriptor(),
		{Name: "browser_click", Parameters: map[string]entity.ParamSchema{"element": {Type: entity.ParamString, Required: true}}},
	}

	registry, err := BuildCatalog(descs, &fakeProvider{}, 0, NewNormalizer(""), DefaultMaxToolChars)
	require.NoError(t, err)

	defs := registry.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "browser_click", defs[0].Name)
	assert.Equal(t, "browser_navigate", defs[1].Name)

	_, ok := registry.Get(entity.ToolBrowserClick)
	assert.True(t, ok)
}

func TestBuildCatalog_DuplicateName(t *testing.T) {
	descs := []entity.ToolDescriptor{navigateDescriptor(), navigateDescriptor()}
	_, err := BuildCatalog(descs, &fakeProvider{}, 0, NewNormalizer(""), 0)
	assert.Error(t, err)
}
