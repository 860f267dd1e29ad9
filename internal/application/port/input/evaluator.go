package input

import (
	"context"

	"kairos/internal/domain/entity"
)

// Evaluator never returns an error: every failure is reported inside the result.
type Evaluator interface {
	Evaluate(ctx context.Context, req entity.EvaluationRequest) *entity.EvaluationResult
}
