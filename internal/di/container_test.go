package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/config"
	"kairos/internal/infrastructure/env"
)

func newTestContainer(t *testing.T, vars map[string]string) *Container {
	t.Helper()
	cfg, err := config.Load(env.FromMap(vars))
	require.NoError(t, err)

	c, err := NewContainer(context.Background(), cfg, Options{Version: "test"})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewContainer(t *testing.T) {
	c := newTestContainer(t, map[string]string{"TOOL_PROVIDER": "rod", "LOG_LEVEL": "error"})

	assert.NotNil(t, c.Evaluator)
	assert.NotNil(t, c.Metrics)
	assert.Len(t, c.Providers, len(entity.Providers))
	assert.Equal(t, config.ToolProviderRod, c.Config.ToolProvider)
}

func TestContainer_EvaluateWithoutCredentials(t *testing.T) {
	c := newTestContainer(t, map[string]string{"LOG_LEVEL": "error"})

	req := entity.NewEvaluationRequest("todo app", "https://todo.test", entity.ProviderOpenAI, entity.KindQualitative)
	res := c.Evaluator.Evaluate(context.Background(), req)

	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "OPENAI_API_KEY")
}

func TestContainer_HTTPServer(t *testing.T) {
	c := newTestContainer(t, map[string]string{"LOG_LEVEL": "error"})

	rec := httptest.NewRecorder()
	c.HTTPServer(false).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewContainer_BadMCPConfig(t *testing.T) {
	cfg, err := config.Load(env.FromMap(map[string]string{"MCP_CONFIG": "/does/not/exist.yaml"}))
	require.NoError(t, err)

	_, err = NewContainer(context.Background(), cfg, Options{})
	assert.ErrorContains(t, err, "read mcp config")
}
