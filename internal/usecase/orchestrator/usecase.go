package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kairos/internal/application/port/input"
	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/prompts"
	"kairos/internal/usecase/testplan"
	"kairos/internal/usecase/verdict"
)

var _ input.Evaluator = (*UseCase)(nil)

type UseCase struct {
	clients output.EvaluationClientFactory
	fetcher output.PageFetcher
	logger  output.LoggerPort
	metrics output.MetricsPort
}

func New(
	clients output.EvaluationClientFactory,
	fetcher output.PageFetcher,
	logger output.LoggerPort,
	metrics output.MetricsPort,
) *UseCase {
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	return &UseCase{
		clients: clients,
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
	}
}

// Evaluate never panics and never returns nil; failures are reported in the
// result's ErrorMessage.
func (uc *UseCase) Evaluate(ctx context.Context, req entity.EvaluationRequest) (res *entity.EvaluationResult) {
	start := time.Now()
	res = &entity.EvaluationResult{
		ID:       uuid.NewString(),
		Kind:     req.Kind,
		Provider: req.Provider,
	}
	log := uc.logger.WithFields(map[string]any{
		"evaluation_id": res.ID,
		"kind":          string(req.Kind),
		"provider":      string(req.Provider),
	})

	defer func() {
		if r := recover(); r != nil {
			log.Error("Evaluation panicked", "panic", r)
			fail(res, fmt.Sprintf("evaluation panicked: %v", r))
		}

		elapsed := time.Since(start)
		secs := elapsed.Seconds()
		res.ExecutionTimeSeconds = &secs
		uc.metrics.ObserveEvaluation(string(req.Kind), string(req.Provider), res.Success, elapsed)

		if res.Success {
			log.Info("Evaluation completed", "seconds", secs)
		} else {
			log.Warn("Evaluation failed", "seconds", secs, "error", res.ErrorMessage)
		}
	}()

	log.Info("Evaluation started", "url", req.URL)

	if err := req.Validate(); err != nil {
		fail(res, err.Error())
		return res
	}

	client, err := uc.clients(req)
	if err != nil {
		fail(res, err.Error())
		return res
	}
	defer func() {
		if err := client.Cleanup(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Client cleanup failed", "error", err)
		}
	}()

	switch req.Kind {
	case entity.KindQualitative:
		uc.runQualitative(ctx, client, req, res)
	case entity.KindFeatureCorrectness:
		uc.runFeatureCorrectness(ctx, client, req, res, log)
	}
	return res
}

func (uc *UseCase) runQualitative(ctx context.Context, client output.EvaluationClient, req entity.EvaluationRequest, res *entity.EvaluationResult) {
	prompt, err := prompts.GenerateQualitativePrompt(req.Query, req.URL)
	if err != nil {
		fail(res, "qualitative evaluation failed: "+err.Error())
		return
	}

	answer, err := client.RunWithTools(ctx, prompt, 0)
	if err != nil {
		fail(res, "qualitative evaluation failed: "+err.Error())
		return
	}

	res.Success = true
	res.RawResponse = map[string]any{"response": answer}
}

func (uc *UseCase) runFeatureCorrectness(ctx context.Context, client output.EvaluationClient, req entity.EvaluationRequest, res *entity.EvaluationResult, log output.LoggerPort) {
	failed := func(err error) {
		fail(res, "feature correctness evaluation failed: "+err.Error())
	}

	page, err := uc.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		failed(err)
		return
	}

	planText, err := client.CreateTestPlan(ctx, req.Query, page)
	if err != nil {
		failed(err)
		return
	}

	plan, err := testplan.Extract(planText)
	if err != nil {
		failed(err)
		return
	}

	parts := testplan.Split(plan, testplan.SplitThreshold)
	log.Info("Test plan ready", "items", len(plan), "sessions", len(parts))

	var outcomes []entity.SessionOutcome
	if len(parts) == 1 {
		outcomes = []entity.SessionOutcome{uc.runPart(ctx, client, parts[0], req.URL, 0, log)}
	} else {
		outcomes = uc.fanOut(ctx, client, parts[0], parts[1], req.URL, log)
	}

	res.Success = true
	res.RawResponse = map[string]any{
		"test_plan": plan,
		"results":   outcomes,
	}
}

// fanOut runs both halves at once, one per slot. Each half reports through
// its own channel and a failing half does not cancel the other.
func (uc *UseCase) fanOut(ctx context.Context, client output.EvaluationClient, first, second []entity.TestPlanItem, url string, log output.LoggerPort) []entity.SessionOutcome {
	firstDone := make(chan entity.SessionOutcome, 1)
	secondDone := make(chan entity.SessionOutcome, 1)

	go func() { firstDone <- uc.runPart(ctx, client, first, url, 0, log) }()
	go func() { secondDone <- uc.runPart(ctx, client, second, url, 1, log) }()

	return []entity.SessionOutcome{<-firstDone, <-secondDone}
}

func (uc *UseCase) runPart(ctx context.Context, client output.EvaluationClient, plan []entity.TestPlanItem, url string, slot int, log output.LoggerPort) (out entity.SessionOutcome) {
	out = entity.SessionOutcome{Slot: slot, TestPlan: plan}
	log = log.WithField("slot", slot)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Evaluation session panicked", "panic", r)
			out.Success = false
			out.Error = fmt.Sprintf("evaluation session panicked: %v", r)
		}
	}()

	prompt, err := prompts.GenerateEvaluationPrompt(plan, url)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	answer, err := client.RunWithTools(ctx, prompt, slot)
	if err != nil {
		out.Error = "single evaluation failed: " + err.Error()
		return out
	}

	out.Success = true
	out.Output = answer
	if v, err := verdict.Parse(answer); err == nil {
		out.Verdict = v
	} else {
		log.Debug("Session answer has no verdict", "error", err)
	}
	return out
}

func fail(res *entity.EvaluationResult, msg string) {
	res.Success = false
	res.ErrorMessage = msg
	res.RawResponse = nil
}
