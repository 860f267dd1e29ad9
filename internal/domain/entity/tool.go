package entity

type ToolName string

// Tools served by the in-process browser provider.
const (
	ToolBrowserNavigate   ToolName = "browser_navigate"
	ToolBrowserClick      ToolName = "browser_click"
	ToolBrowserFill       ToolName = "browser_fill"
	ToolBrowserScroll     ToolName = "browser_scroll"
	ToolBrowserScreenshot ToolName = "browser_screenshot"
	ToolBrowserPressEnter ToolName = "browser_press_enter"
	ToolBrowserExtract    ToolName = "browser_extract"
	ToolBrowserUISummary  ToolName = "browser_ui_summary"
	ToolBrowserContent    ToolName = "browser_get_page_content"
)

func (t ToolName) String() string {
	return string(t)
}

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

type ParamSchema struct {
	Type        ParamType
	Required    bool
	Description string
}

// ToolDescriptor is a tool as advertised by a tool provider.
type ToolDescriptor struct {
	Name          string
	Documentation string
	Parameters    map[string]ParamSchema
}

// ToolResult mirrors the provider's (success, result|error) reply.
type ToolResult struct {
	Success bool
	Content any
	Error   string
}

type TextContent struct {
	Text string
}

// ImageContent carries either a URL or inline bytes.
type ImageContent struct {
	URL      string
	Data     []byte
	MimeType string
}
