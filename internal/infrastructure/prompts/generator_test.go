package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/entity"
)

func TestGenerateTestPlanPrompt(t *testing.T) {
	prompt, err := GenerateTestPlanPrompt("portfolio site", "<html><body><button id=\"go\">Go</button></body></html>")
	require.NoError(t, err)

	assert.Contains(t, prompt, "REQUEST: portfolio site")
	assert.Contains(t, prompt, `<button id="go">Go</button>`)
	assert.Contains(t, prompt, "```json")
	assert.Contains(t, prompt, `"Test_feature"`)
}

func TestGenerateEvaluationPrompt(t *testing.T) {
	plan := []entity.TestPlanItem{
		{Feature: "Contact form", Description: "Submits", Actions: entity.TextList{"Fill name"}, Assertions: entity.TextList{"Thanks shown"}},
	}

	prompt, err := GenerateEvaluationPrompt(plan, "https://example.test/index.html")
	require.NoError(t, err)

	assert.Contains(t, prompt, `"Test_feature": "Contact form"`)
	assert.Contains(t, prompt, `"Fill name"`)
	assert.Contains(t, prompt, "URL: https://example.test/index.html")
	assert.Contains(t, prompt, "Overall_status")
	assert.NotContains(t, prompt, "{{")
}

func TestGenerateQualitativePrompt(t *testing.T) {
	prompt, err := GenerateQualitativePrompt("budget tracker", "https://example.test")
	require.NoError(t, err)

	assert.Contains(t, prompt, "Request: budget tracker")
	assert.Contains(t, prompt, "Application URL: https://example.test")
	assert.Contains(t, prompt, `"visual_ux"`)
}

func TestEmbeddedPrompts(t *testing.T) {
	for name, p := range map[string]string{
		"agent":    AgentSystemPrompt,
		"testplan": TestPlanSystemPrompt,
	} {
		assert.NotEmpty(t, strings.TrimSpace(p), name)
	}
}
