package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"

	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
)

var _ output.LLMPort = (*Adapter)(nil)

const defaultMaxTokens = 3000

type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// Vertex routes requests through Google Cloud with application default
	// credentials instead of an API key.
	Vertex    bool
	Region    string
	ProjectID string

	Logger output.LoggerPort
}

type Adapter struct {
	client anthropic.Client
	model  string
	logger output.LoggerPort
}

func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	var opts []option.RequestOption
	if cfg.Vertex {
		if cfg.Region == "" || cfg.ProjectID == "" {
			return nil, fmt.Errorf("claude on vertex needs both region and project id")
		}
		opts = append(opts, vertex.WithGoogleAuth(ctx, cfg.Region, cfg.ProjectID))
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic api key is not set")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Adapter{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		logger: cfg.Logger,
	}, nil
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	params, err := buildParams(a.model, req)
	if err != nil {
		return nil, err
	}

	if a.logger != nil {
		a.logger.Debug("Creating message",
			"model", a.model,
			"messagesCount", len(params.Messages),
			"toolsCount", len(params.Tools),
		)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic message failed: %w", err)
	}

	return &output.ChatResponse{Message: convertResponse(msg)}, nil
}

func buildParams(model string, req output.ChatRequest) (anthropic.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages, system, err := convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = tools
	}
	return params, nil
}

// convertMessages pulls system messages out into the system prompt and folds
// consecutive tool results into one user message, as the Messages API
// requires every result of an assistant turn in the following user turn.
func convertMessages(messages []entity.Message) ([]anthropic.MessageParam, string, error) {
	var (
		result        []anthropic.MessageParam
		system        []string
		pendingResult []anthropic.ContentBlockParamUnion
	)

	flush := func() {
		if len(pendingResult) > 0 {
			result = append(result, anthropic.NewUserMessage(pendingResult...))
			pendingResult = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleSystem:
			system = append(system, msg.Content)

		case entity.RoleTool:
			pendingResult = append(pendingResult, anthropic.NewToolResultBlock(
				msg.ToolCallID,
				msg.Content,
				strings.HasPrefix(msg.Content, "Error:"),
			))

		case entity.RoleAssistant:
			flush()
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := map[string]any{}
				if strings.TrimSpace(tc.Arguments) != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
						return nil, "", fmt.Errorf("invalid tool call input for %s: %w", tc.Name, err)
					}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(content) > 0 {
				result = append(result, anthropic.NewAssistantMessage(content...))
			}

		default:
			flush()
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	flush()

	return result, strings.Join(system, "\n\n"), nil
}

func convertTools(tools []entity.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		raw, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode schema for %s: %w", t.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", t.Name, err)
		}

		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", t.Name)
		}
		if t.Description != "" {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		result = append(result, param)
	}
	return result, nil
}

func convertResponse(msg *anthropic.Message) entity.Message {
	result := entity.Message{Role: entity.RoleAssistant}

	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			result.ToolCalls = append(result.ToolCalls, entity.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: string(b.Input),
			})
		}
	}
	result.Content = text.String()
	return result
}
