package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"kairos/internal/application/port/output"
	"kairos/internal/application/service"
	"kairos/internal/domain/entity"
)

const (
	DefaultMaxIterations = 50
	DefaultWindowK       = 6
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

type Config struct {
	MaxIterations int
	WindowK       int
	MaxToolChars  int
	MaxTokens     int
	Temperature   float32
	SystemPrompt  string
	// TempDir is the parent for the session's artifact directory.
	// Empty means the system temp dir.
	TempDir string
}

func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		WindowK:       DefaultWindowK,
		MaxToolChars:  service.DefaultMaxToolChars,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.WindowK <= 0 {
		c.WindowK = DefaultWindowK
	}
	if c.MaxToolChars == 0 {
		c.MaxToolChars = service.DefaultMaxToolChars
	}
	return c
}

// Session is one bounded tool-calling conversation on a pool slot.
// It can be run once.
type Session struct {
	slot    int
	llm     output.LLMPort
	pool    *service.SessionPool
	logger  output.LoggerPort
	metrics output.MetricsPort
	cfg     Config

	mu         sync.Mutex
	state      State
	memory     *Memory
	iterations int

	lease        *service.Lease
	normalizer   *service.Normalizer
	artifactDir  string
	teardownOnce sync.Once
}

func New(
	slot int,
	llm output.LLMPort,
	pool *service.SessionPool,
	logger output.LoggerPort,
	metrics output.MetricsPort,
	cfg Config,
) *Session {
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	cfg = cfg.withDefaults()
	return &Session{
		slot:    slot,
		llm:     llm,
		pool:    pool,
		logger:  logger.WithField("slot", slot),
		metrics: metrics,
		cfg:     cfg,
		state:   StateIdle,
		memory:  NewMemory(cfg.WindowK),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Iterations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iterations
}

// History returns the messages currently held in the window.
func (s *Session) History() []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory.Messages()
}

// Run drives the conversation until the model answers without tool calls.
// Resources are torn down before Run returns, whatever the outcome.
func (s *Session) Run(ctx context.Context, input string) (answer string, err error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return "", entity.ErrSessionUsed
	}
	s.state = StateRunning
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent session panicked: %v", r)
		}
		s.teardown()
		s.finish(err)
	}()

	registry, err := s.start(ctx)
	if err != nil {
		return "", err
	}
	return s.loop(ctx, input, registry)
}

func (s *Session) start(ctx context.Context) (*service.ToolRegistryImpl, error) {
	dir, err := os.MkdirTemp(s.cfg.TempDir, fmt.Sprintf("kairos-slot%d-*", s.slot))
	if err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	s.artifactDir = dir
	s.normalizer = service.NewNormalizer(dir)

	lease, err := s.pool.Acquire(ctx, s.slot)
	if err != nil {
		return nil, err
	}
	s.lease = lease

	descs, err := lease.Provider().ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	registry, err := service.BuildCatalog(descs, lease.Provider(), s.slot, s.normalizer, s.cfg.MaxToolChars)
	if err != nil {
		return nil, fmt.Errorf("build tool catalog: %w", err)
	}

	s.logger.Info("Agent session started", "tools", len(descs))
	return registry, nil
}

func (s *Session) loop(ctx context.Context, input string, registry *service.ToolRegistryImpl) (string, error) {
	toolDefs := registry.Definitions()

	for iteration := 1; iteration <= s.cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		s.mu.Lock()
		s.iterations = iteration
		s.mu.Unlock()
		s.logger.Debug("Starting iteration", "iteration", iteration)

		resp, err := s.llm.Chat(ctx, output.ChatRequest{
			Messages:    s.prompt(input),
			Tools:       toolDefs,
			Temperature: s.cfg.Temperature,
			MaxTokens:   s.cfg.MaxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("llm request failed: %w", err)
		}

		msg := resp.Message
		msg.Role = entity.RoleAssistant
		s.remember(func(m *Memory) { m.AddAssistant(msg) })

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		for _, tc := range msg.ToolCalls {
			observation, err := s.executeTool(ctx, registry, tc, iteration)
			if err != nil {
				return "", err
			}
			s.remember(func(m *Memory) {
				m.AddToolResult(entity.Message{
					Role:       entity.RoleTool,
					ToolCallID: tc.ID,
					Name:       tc.Name,
					Content:    observation,
				})
			})
		}
	}

	return "", fmt.Errorf("%w (%d)", entity.ErrMaxIterations, s.cfg.MaxIterations)
}

func (s *Session) prompt(input string) []entity.Message {
	history := s.History()
	messages := make([]entity.Message, 0, len(history)+2)
	if s.cfg.SystemPrompt != "" {
		messages = append(messages, entity.Message{Role: entity.RoleSystem, Content: s.cfg.SystemPrompt})
	}
	messages = append(messages, entity.Message{Role: entity.RoleUser, Content: input})
	return append(messages, history...)
}

func (s *Session) remember(fn func(m *Memory)) {
	s.mu.Lock()
	fn(s.memory)
	s.mu.Unlock()
}

// executeTool returns an observation for the model. Unknown tools are
// reported back to the model; any failure of a known tool ends the session.
func (s *Session) executeTool(ctx context.Context, registry *service.ToolRegistryImpl, tc entity.ToolCall, iteration int) (string, error) {
	log := s.logger.WithFields(map[string]any{"tool": tc.Name, "iteration": iteration})

	tool, ok := registry.Get(entity.ToolName(tc.Name))
	if !ok {
		log.Warn("Unknown tool called")
		return fmt.Sprintf("Error: unknown tool '%s'", tc.Name), nil
	}

	log.Info("Executing tool", "args", tc.Arguments)

	result, err := tool.Execute(ctx, tc.Arguments)
	if err != nil {
		s.metrics.ObserveToolCall(false)
		log.Error("Tool execution failed", "error", err)
		return "", err
	}
	s.metrics.ObserveToolCall(true)

	log.Debug("Tool completed", "resultLen", len(result))
	return result, nil
}

func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		ctx := context.Background()
		if s.lease != nil {
			if err := s.lease.Release(ctx); err != nil {
				s.logger.Warn("Releasing tool provider failed", "error", err)
			}
		}
		if s.normalizer != nil {
			if err := s.normalizer.Cleanup(); err != nil {
				s.logger.Warn("Removing session artifacts failed", "error", err)
			}
		}
		if s.artifactDir != "" {
			if err := os.RemoveAll(s.artifactDir); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("Removing artifact dir failed", "dir", s.artifactDir, "error", err)
			}
		}
	})
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = StateDone
	}
	iterations := s.iterations
	s.mu.Unlock()

	s.metrics.ObserveSession(err == nil, iterations)
	if err != nil {
		s.logger.Error("Agent session failed", "iterations", iterations, "error", err)
		return
	}
	s.logger.Info("Agent session completed", "iterations", iterations)
}
