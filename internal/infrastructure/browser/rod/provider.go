package rod

import (
	"context"
	"fmt"
	"sort"

	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/fetcher"
)

var _ output.ToolProvider = (*ToolProvider)(nil)

type toolHandler func(ctx context.Context, args map[string]any) (any, error)

type browserTool struct {
	descriptor entity.ToolDescriptor
	handler    toolHandler
}

// ToolProvider serves browser tools from one in-process browser.
type ToolProvider struct {
	browser output.BrowserPort
	logger  output.LoggerPort
	tools   map[string]browserTool
}

func NewToolProvider(browser output.BrowserPort, logger output.LoggerPort) *ToolProvider {
	p := &ToolProvider{browser: browser, logger: logger}
	p.tools = p.buildTools()
	return p
}

// NewToolProviderFactory launches a dedicated browser for every slot.
func NewToolProviderFactory(cfg BrowserConfig, logger output.LoggerPort) output.ToolProviderFactory {
	return func(ctx context.Context, slot int) (output.ToolProvider, error) {
		browser, err := NewBrowserAdapter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log := logger.WithField("slot", slot)
		log.Info("Browser launched", "headless", cfg.Headless)
		return NewToolProvider(browser, log), nil
	}
}

func (p *ToolProvider) ListTools(ctx context.Context) ([]entity.ToolDescriptor, error) {
	descs := make([]entity.ToolDescriptor, 0, len(p.tools))
	for _, t := range p.tools {
		descs = append(descs, t.descriptor)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs, nil
}

func (p *ToolProvider) Invoke(ctx context.Context, name string, args map[string]any) (entity.ToolResult, error) {
	t, ok := p.tools[name]
	if !ok {
		return entity.ToolResult{Success: false, Error: fmt.Sprintf("unknown tool %q", name)}, nil
	}

	content, err := t.handler(ctx, args)
	if err != nil {
		p.logger.Debug("Browser tool failed", "tool", name, "error", err)
		return entity.ToolResult{Success: false, Error: err.Error()}, nil
	}
	return entity.ToolResult{Success: true, Content: content}, nil
}

func (p *ToolProvider) Shutdown(ctx context.Context) error {
	p.browser.Close()
	p.logger.Debug("Browser closed")
	return nil
}

func (p *ToolProvider) buildTools() map[string]browserTool {
	selector := entity.ParamSchema{Type: entity.ParamString, Required: true, Description: "CSS or XPath selector"}

	tools := []browserTool{
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserNavigate.String(),
				Documentation: "Navigate the browser to a URL.",
				Parameters: map[string]entity.ParamSchema{
					"url": {Type: entity.ParamString, Required: true, Description: "URL to navigate to"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				if err := p.browser.Navigate(ctx, stringArg(args, "url")); err != nil {
					return nil, err
				}
				return entity.TextContent{Text: "Navigated to " + p.browser.CurrentURL()}, nil
			},
		},
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserClick.String(),
				Documentation: "Click an element on the page.",
				Parameters:    map[string]entity.ParamSchema{"selector": selector},
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				if err := p.browser.Click(ctx, stringArg(args, "selector")); err != nil {
					return nil, err
				}
				return entity.TextContent{Text: "Click successful"}, nil
			},
		},
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserFill.String(),
				Documentation: "Replace the value of an input field.",
				Parameters: map[string]entity.ParamSchema{
					"selector": selector,
					"text":     {Type: entity.ParamString, Required: true, Description: "Text to input"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				sel := stringArg(args, "selector")
				if err := p.browser.Fill(ctx, sel, stringArg(args, "text")); err != nil {
					return nil, err
				}
				return entity.TextContent{Text: fmt.Sprintf("Filled '%s' with text", sel)}, nil
			},
		},
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserScroll.String(),
				Documentation: "Scroll the page up, down, to the top or to the bottom.",
				Parameters: map[string]entity.ParamSchema{
					"direction": {Type: entity.ParamString, Required: true, Description: "One of up, down, top, bottom"},
					"amount":    {Type: entity.ParamInteger, Description: "Pixels to scroll for up and down"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				dir := stringArg(args, "direction")
				if err := p.browser.Scroll(ctx, dir, intArg(args, "amount")); err != nil {
					return nil, err
				}
				return entity.TextContent{Text: "Scrolled " + dir}, nil
			},
		},
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserScreenshot.String(),
				Documentation: "Capture the visible part of the page.",
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				shot, err := p.browser.Screenshot(ctx)
				if err != nil {
					return nil, err
				}
				return entity.ImageContent{Data: shot.Data, MimeType: "image/" + shot.Format}, nil
			},
		},
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserPressEnter.String(),
				Documentation: "Press the Enter key.",
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				if err := p.browser.PressEnter(ctx); err != nil {
					return nil, err
				}
				return entity.TextContent{Text: "Enter pressed"}, nil
			},
		},
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserExtract.String(),
				Documentation: "Return the visible text of the page.",
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				text, err := p.browser.GetPageText(ctx)
				if err != nil {
					return nil, err
				}
				return entity.TextContent{Text: text}, nil
			},
		},
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserContent.String(),
				Documentation: "Return the page URL, title and cleaned body HTML.",
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				content, err := p.browser.GetPageContent(ctx)
				if err != nil {
					return nil, err
				}
				content.HTML = fetcher.CleanHTML(content.HTML, nil)
				return content, nil
			},
		},
		{
			descriptor: entity.ToolDescriptor{
				Name:          entity.ToolBrowserUISummary.String(),
				Documentation: "List the interactive elements on the page with their selectors.",
			},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				return p.browser.GetUIElements(ctx)
			},
		},
	}

	out := make(map[string]browserTool, len(tools))
	for _, t := range tools {
		out[t.descriptor.Name] = t
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
