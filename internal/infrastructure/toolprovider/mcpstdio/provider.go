package mcpstdio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
)

var _ output.ToolProvider = (*Provider)(nil)

const clientName = "kairos"

// mcpClient is the part of *client.Client the provider uses.
type mcpClient interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Provider is one MCP server process serving one session slot.
type Provider struct {
	client mcpClient
	slot   int
	logger output.LoggerPort
}

func newProvider(c mcpClient, slot int, logger output.LoggerPort) *Provider {
	return &Provider{client: c, slot: slot, logger: logger}
}

// NewFactory starts a fresh MCP server for every slot acquisition.
func NewFactory(cfg ServerConfig, version string, logger output.LoggerPort) output.ToolProviderFactory {
	return func(ctx context.Context, slot int) (output.ToolProvider, error) {
		log := logger.WithFields(map[string]any{"slot": slot, "command": cfg.Command})

		c, err := client.NewStdioMCPClient(cfg.Command, cfg.Environ(), cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("start mcp server: %w", err)
		}

		req := mcp.InitializeRequest{}
		req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: version}

		info, err := c.Initialize(ctx, req)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("initialize mcp session: %w", err)
		}

		log.Info("MCP server started", "server", info.ServerInfo.Name, "serverVersion", info.ServerInfo.Version)
		return newProvider(c, slot, log), nil
	}
}

func (p *Provider) ListTools(ctx context.Context) ([]entity.ToolDescriptor, error) {
	res, err := p.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list mcp tools: %w", err)
	}

	descs := make([]entity.ToolDescriptor, 0, len(res.Tools))
	for _, tool := range res.Tools {
		if strings.TrimSpace(tool.Name) == "" {
			continue
		}
		descs = append(descs, descriptorFromTool(tool))
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs, nil
}

func (p *Provider) Invoke(ctx context.Context, name string, args map[string]any) (entity.ToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := p.client.CallTool(ctx, req)
	if err != nil {
		return entity.ToolResult{}, fmt.Errorf("call %s: %w", name, err)
	}

	content := convertContent(res.Content)
	if res.IsError {
		return entity.ToolResult{Success: false, Error: errorText(content)}, nil
	}

	if len(content) == 1 {
		return entity.ToolResult{Success: true, Content: content[0]}, nil
	}
	return entity.ToolResult{Success: true, Content: content}, nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close mcp session: %w", err)
	}
	p.logger.Debug("MCP server stopped")
	return nil
}

func descriptorFromTool(tool mcp.Tool) entity.ToolDescriptor {
	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}

	params := make(map[string]entity.ParamSchema, len(tool.InputSchema.Properties))
	for name, raw := range tool.InputSchema.Properties {
		prop, _ := raw.(map[string]any)
		params[name] = entity.ParamSchema{
			Type:        propertyType(prop["type"]),
			Required:    required[name],
			Description: stringValue(prop["description"]),
		}
	}

	return entity.ToolDescriptor{
		Name:          tool.Name,
		Documentation: tool.Description,
		Parameters:    params,
	}
}

// propertyType takes the first non-null type of a property. Properties
// without a usable type become strings in the catalog.
func propertyType(v any) entity.ParamType {
	switch t := v.(type) {
	case string:
		return entity.ParamType(t)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				return entity.ParamType(s)
			}
		}
	}
	return ""
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func convertContent(items []mcp.Content) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		switch c := item.(type) {
		case mcp.TextContent:
			out = append(out, entity.TextContent{Text: c.Text})
		case *mcp.TextContent:
			out = append(out, entity.TextContent{Text: c.Text})
		case mcp.ImageContent:
			out = append(out, imageContent(c.Data, c.MIMEType))
		case *mcp.ImageContent:
			out = append(out, imageContent(c.Data, c.MIMEType))
		default:
			data, err := json.Marshal(item)
			if err != nil {
				out = append(out, fmt.Sprint(item))
				continue
			}
			out = append(out, json.RawMessage(data))
		}
	}
	return out
}

func imageContent(data, mimeType string) any {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return map[string]any{"type": "image", "error": "invalid base64 image data"}
	}
	return entity.ImageContent{Data: raw, MimeType: mimeType}
}

func errorText(content []any) string {
	var parts []string
	for _, c := range content {
		if t, ok := c.(entity.TextContent); ok && t.Text != "" {
			parts = append(parts, t.Text)
		}
	}
	if len(parts) == 0 {
		return "tool reported an error"
	}
	return strings.Join(parts, "\n")
}
