package output

import (
	"context"

	"kairos/internal/domain/entity"
)

// EvaluationClient is the model-facing capability the orchestrator drives.
// One client serves one evaluation and owns its session pool.
type EvaluationClient interface {
	Provider() entity.Provider
	GenerateResponse(ctx context.Context, prompt string) (string, error)
	CreateTestPlan(ctx context.Context, query, pageHTML string) (string, error)
	RunWithTools(ctx context.Context, prompt string, slot int) (string, error)
	Cleanup(ctx context.Context) error
}

type EvaluationClientFactory func(req entity.EvaluationRequest) (EvaluationClient, error)
