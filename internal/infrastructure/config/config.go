package config

import (
	"fmt"
	"strings"

	"kairos/internal/application/port/output"
	"kairos/internal/application/service"
	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/llm"
	"kairos/internal/usecase/session"
)

type ToolProviderKind string

const (
	ToolProviderMCP ToolProviderKind = "mcp"
	ToolProviderRod ToolProviderKind = "rod"
)

const (
	DefaultMaxLLMTokens = 4096
	DefaultHTTPAddr     = ":8000"
	DefaultLogLevel     = "info"
)

type Config struct {
	DefaultProvider entity.Provider
	LLM             llm.Settings

	ToolProvider    ToolProviderKind
	MCPConfigPath   string
	BrowserHeadless bool
	CleanHTML       bool

	MaxIterations int
	WindowK       int
	MaxToolChars  int
	MaxLLMTokens  int

	LogLevel string
	LogFile  string
	HTTPAddr string
}

// Load reads the typed configuration. Only malformed enumerations are errors;
// missing provider credentials surface when that provider is used.
func Load(env output.ConfigPort) (Config, error) {
	provider, err := entity.ParseProvider(env.GetWithDefault("DEFAULT_PROVIDER", string(entity.ProviderClaudeVertex)))
	if err != nil {
		return Config{}, fmt.Errorf("DEFAULT_PROVIDER: %w", err)
	}

	tools := ToolProviderKind(strings.ToLower(env.GetWithDefault("TOOL_PROVIDER", string(ToolProviderMCP))))
	if tools != ToolProviderMCP && tools != ToolProviderRod {
		return Config{}, fmt.Errorf("TOOL_PROVIDER: unsupported value %q", tools)
	}

	cfg := Config{
		DefaultProvider: provider,
		LLM: llm.Settings{
			OpenAIAPIKey:     env.Get("OPENAI_API_KEY"),
			OpenAIBaseURL:    env.Get("OPENAI_BASE_URL"),
			OpenRouterAPIKey: env.Get("OPENROUTER_API_KEY"),
			OpenRouterModel:  env.Get("OPENROUTER_MODEL_NAME"),
			AnthropicAPIKey:  env.Get("ANTHROPIC_API_KEY"),
			ProjectID:        env.Get("PROJECT_ID"),
			Location:         env.Get("LOCATION"),
			VertexModel:      env.Get("MODEL_NAME"),
		},
		ToolProvider:    tools,
		MCPConfigPath:   env.Get("MCP_CONFIG"),
		BrowserHeadless: env.GetBool("BROWSER_HEADLESS", true),
		CleanHTML:       env.GetBool("CLEAN_HTML", false),
		MaxIterations:   env.GetInt("MAX_ITERATIONS", session.DefaultMaxIterations),
		WindowK:         env.GetInt("MEMORY_WINDOW_K", session.DefaultWindowK),
		MaxToolChars:    env.GetInt("MAX_TOOL_CHARS", service.DefaultMaxToolChars),
		MaxLLMTokens:    env.GetInt("MAX_LLM_TOKENS", DefaultMaxLLMTokens),
		LogLevel:        env.GetWithDefault("LOG_LEVEL", DefaultLogLevel),
		LogFile:         env.Get("LOG_FILE"),
		HTTPAddr:        env.GetWithDefault("HTTP_ADDR", DefaultHTTPAddr),
	}
	return cfg, nil
}

// SessionConfig maps the agent settings onto a session configuration.
func (c Config) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.MaxIterations = c.MaxIterations
	sc.WindowK = c.WindowK
	sc.MaxToolChars = c.MaxToolChars
	sc.MaxTokens = c.MaxLLMTokens
	return sc
}
