package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/application/port/output"
	"kairos/internal/application/service"
	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/logger"
)

// scriptedLLM replays responses in order and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []entity.Message
	requests  []output.ChatRequest
	next      func(req output.ChatRequest) entity.Message
}

func (l *scriptedLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
	if l.next != nil {
		return &output.ChatResponse{Message: l.next(req)}, nil
	}
	if len(l.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	msg := l.responses[0]
	l.responses = l.responses[1:]
	return &output.ChatResponse{Message: msg}, nil
}

type fakeProvider struct {
	mu        sync.Mutex
	invoke    func(name string, args map[string]any) (entity.ToolResult, error)
	calls     []string
	shutdowns int
}

func (p *fakeProvider) ListTools(ctx context.Context) ([]entity.ToolDescriptor, error) {
	return []entity.ToolDescriptor{
		{
			Name:          "browser_navigate",
			Documentation: "Navigate to a URL",
			Parameters:    map[string]entity.ParamSchema{"url": {Type: entity.ParamString, Required: true}},
		},
		{
			Name:          "browser_take_screenshot",
			Documentation: "Take a screenshot",
		},
	}, nil
}

func (p *fakeProvider) Invoke(ctx context.Context, name string, args map[string]any) (entity.ToolResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, name)
	invoke := p.invoke
	p.mu.Unlock()
	if invoke != nil {
		return invoke(name, args)
	}
	return entity.ToolResult{Success: true, Content: entity.TextContent{Text: "done " + name}}, nil
}

func (p *fakeProvider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdowns++
	return nil
}

type providerSet struct {
	mu     sync.Mutex
	bySlot map[int]*fakeProvider
	make   func(slot int) *fakeProvider
}

func (s *providerSet) factory(ctx context.Context, slot int) (output.ToolProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bySlot == nil {
		s.bySlot = map[int]*fakeProvider{}
	}
	p := &fakeProvider{}
	if s.make != nil {
		p = s.make(slot)
	}
	s.bySlot[slot] = p
	return p, nil
}

func (s *providerSet) get(slot int) *fakeProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bySlot[slot]
}

func toolCall(id, name, args string) entity.Message {
	return entity.Message{
		Role:      entity.RoleAssistant,
		ToolCalls: []entity.ToolCall{{ID: id, Name: name, Arguments: args}},
	}
}

func newSession(t *testing.T, slot int, llm output.LLMPort, providers *providerSet, cfg Config) *Session {
	t.Helper()
	cfg.TempDir = t.TempDir()
	pool := service.NewSessionPool(providers.factory)
	return New(slot, llm, pool, logger.NewNop(), nil, cfg)
}

func TestSession_FinalAnswerWithoutTools(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{{Role: entity.RoleAssistant, Content: "All good"}}}
	providers := &providerSet{}
	s := newSession(t, 0, llm, providers, Config{SystemPrompt: "You test web apps."})

	out, err := s.Run(context.Background(), "check the page")
	require.NoError(t, err)
	assert.Equal(t, "All good", out)
	assert.Equal(t, StateDone, s.State())
	assert.Equal(t, 1, s.Iterations())

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, entity.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "check the page", req.Messages[1].Content)
	require.Len(t, req.Tools, 2)
	assert.Equal(t, "browser_navigate", req.Tools[0].Name)

	assert.Equal(t, 1, providers.get(0).shutdowns)
}

func TestSession_ToolThenAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		toolCall("call_1", "browser_navigate", `{"url":"https://example.test"}`),
		{Role: entity.RoleAssistant, Content: "Navigation works"},
	}}
	providers := &providerSet{}
	s := newSession(t, 0, llm, providers, Config{})

	out, err := s.Run(context.Background(), "open the site")
	require.NoError(t, err)
	assert.Equal(t, "Navigation works", out)
	assert.Equal(t, 2, s.Iterations())

	second := llm.requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, entity.RoleAssistant, second[1].Role)
	assert.Equal(t, entity.RoleTool, second[2].Role)
	assert.Equal(t, "call_1", second[2].ToolCallID)
	assert.Equal(t, `"done browser_navigate"`, second[2].Content)
}

func TestSession_UnknownToolIsObservation(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		toolCall("call_1", "browser_teleport", `{}`),
		{Role: entity.RoleAssistant, Content: "gave up"},
	}}
	s := newSession(t, 0, llm, &providerSet{}, Config{})

	out, err := s.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "gave up", out)
	assert.Contains(t, llm.requests[1].Messages[2].Content, "unknown tool 'browser_teleport'")
}

func TestSession_MaxIterations(t *testing.T) {
	llm := &scriptedLLM{next: func(req output.ChatRequest) entity.Message {
		return toolCall("call", "browser_navigate", `{"url":"https://example.test"}`)
	}}
	providers := &providerSet{}
	s := newSession(t, 1, llm, providers, Config{MaxIterations: 3})

	_, err := s.Run(context.Background(), "loop forever")
	require.ErrorIs(t, err, entity.ErrMaxIterations)
	assert.Contains(t, err.Error(), "max iterations exceeded")
	assert.Equal(t, StateFailed, s.State())
	assert.Len(t, llm.requests, 3)
	assert.Equal(t, 1, providers.get(1).shutdowns)
}

func TestSession_ToolErrorTearsDown(t *testing.T) {
	providers := &providerSet{make: func(slot int) *fakeProvider {
		return &fakeProvider{invoke: func(name string, args map[string]any) (entity.ToolResult, error) {
			if name == "browser_take_screenshot" {
				return entity.ToolResult{Success: true, Content: entity.ImageContent{Data: []byte("png"), MimeType: "image/png"}}, nil
			}
			return entity.ToolResult{Success: false, Error: "navigation timed out"}, nil
		}}
	}}
	llm := &scriptedLLM{responses: []entity.Message{
		toolCall("call_1", "browser_take_screenshot", ``),
		toolCall("call_2", "browser_navigate", `{"url":"https://example.test"}`),
	}}
	s := newSession(t, 0, llm, providers, Config{})

	_, err := s.Run(context.Background(), "screenshot then navigate")

	var ierr *entity.ToolInvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "browser_navigate", ierr.Tool)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, 1, providers.get(0).shutdowns)

	var image map[string]any
	require.NoError(t, json.Unmarshal([]byte(llm.requests[1].Messages[2].Content), &image))
	path, _ := image["path"].(string)
	require.NotEmpty(t, path)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSession_ValidationErrorFails(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		toolCall("call_1", "browser_navigate", `{}`),
	}}
	providers := &providerSet{}
	s := newSession(t, 0, llm, providers, Config{})

	_, err := s.Run(context.Background(), "go")
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, providers.get(0).calls)
	assert.Equal(t, 1, providers.get(0).shutdowns)
}

func TestSession_SingleUse(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{{Content: "done"}}}
	s := newSession(t, 0, llm, &providerSet{}, Config{})

	_, err := s.Run(context.Background(), "once")
	require.NoError(t, err)

	_, err = s.Run(context.Background(), "twice")
	assert.ErrorIs(t, err, entity.ErrSessionUsed)
}

func TestSession_LLMErrorFails(t *testing.T) {
	llm := &scriptedLLM{}
	providers := &providerSet{}
	s := newSession(t, 0, llm, providers, Config{})

	_, err := s.Run(context.Background(), "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm request failed")
	assert.Equal(t, 1, providers.get(0).shutdowns)
}

func TestSession_ConcurrentIsolation(t *testing.T) {
	providers := &providerSet{}
	pool := service.NewSessionPool(providers.factory)

	newLLM := func(marker string) *scriptedLLM {
		return &scriptedLLM{responses: []entity.Message{
			toolCall("call_"+marker, "browser_navigate", `{"url":"https://example.test/`+marker+`"}`),
			toolCall("call_"+marker+"_2", "browser_navigate", `{"url":"https://example.test/`+marker+`/2"}`),
			{Content: "finished " + marker},
		}}
	}
	llms := []*scriptedLLM{newLLM("left"), newLLM("right")}
	sessions := []*Session{
		New(0, llms[0], pool, logger.NewNop(), nil, Config{TempDir: t.TempDir()}),
		New(1, llms[1], pool, logger.NewNop(), nil, Config{TempDir: t.TempDir()}),
	}

	var wg sync.WaitGroup
	outs := make([]string, 2)
	errs := make([]error, 2)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = sessions[i].Run(context.Background(), "test")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, "finished left", outs[0])
	assert.Equal(t, "finished right", outs[1])

	for i, other := range []string{"right", "left"} {
		for _, msg := range sessions[i].History() {
			for _, tc := range msg.ToolCalls {
				assert.False(t, strings.Contains(tc.ID, other))
			}
			assert.False(t, strings.Contains(msg.ToolCallID, other))
		}
	}
	assert.Equal(t, 0, pool.Live())
}
