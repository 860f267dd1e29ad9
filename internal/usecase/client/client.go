package client

import (
	"context"
	"fmt"

	"kairos/internal/application/port/output"
	"kairos/internal/application/service"
	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/prompts"
	"kairos/internal/usecase/session"
)

var _ output.EvaluationClient = (*Client)(nil)

const (
	DefaultMaxTokens    = 3000
	TestPlanTemperature = 0.3
)

type Options struct {
	Session   session.Config
	MaxTokens int
}

// Client drives one model for one evaluation. Agent sessions started through
// RunWithTools share the client's slot pool.
type Client struct {
	provider    entity.Provider
	llm         output.LLMPort
	pool        *service.SessionPool
	logger      output.LoggerPort
	metrics     output.MetricsPort
	temperature float32
	opts        Options
}

func New(
	provider entity.Provider,
	llm output.LLMPort,
	tools output.ToolProviderFactory,
	logger output.LoggerPort,
	metrics output.MetricsPort,
	temperature float64,
	opts Options,
) *Client {
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Session.SystemPrompt == "" {
		opts.Session.SystemPrompt = prompts.AgentSystemPrompt
	}
	return &Client{
		provider:    provider,
		llm:         llm,
		pool:        service.NewSessionPool(tools),
		logger:      logger.WithField("provider", string(provider)),
		metrics:     metrics,
		temperature: float32(temperature),
		opts:        opts,
	}
}

func (c *Client) Provider() entity.Provider { return c.provider }

func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, []entity.Message{{Role: entity.RoleUser, Content: prompt}}, c.temperature)
}

func (c *Client) CreateTestPlan(ctx context.Context, query, pageHTML string) (string, error) {
	prompt, err := prompts.GenerateTestPlanPrompt(query, pageHTML)
	if err != nil {
		return "", err
	}

	c.logger.Info("Creating test plan", "htmlLen", len(pageHTML))

	out, err := c.complete(ctx, []entity.Message{
		{Role: entity.RoleSystem, Content: prompts.TestPlanSystemPrompt},
		{Role: entity.RoleUser, Content: prompt},
	}, TestPlanTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to create test plan: %w", err)
	}
	return out, nil
}

// RunWithTools runs one agent session on slot and returns its final answer.
func (c *Client) RunWithTools(ctx context.Context, prompt string, slot int) (string, error) {
	cfg := c.opts.Session
	cfg.Temperature = c.temperature
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = c.opts.MaxTokens
	}

	s := session.New(slot, c.llm, c.pool, c.logger, c.metrics, cfg)
	return s.Run(ctx, prompt)
}

// Cleanup releases any provider connection still held by the pool.
func (c *Client) Cleanup(ctx context.Context) error {
	return c.pool.Close(ctx)
}

func (c *Client) complete(ctx context.Context, messages []entity.Message, temperature float32) (string, error) {
	resp, err := c.llm.Chat(ctx, output.ChatRequest{
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	return resp.Message.Content, nil
}
