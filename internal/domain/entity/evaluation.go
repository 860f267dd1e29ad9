package entity

import (
	"fmt"
	"strings"
)

type EvaluationKind string

const (
	KindQualitative        EvaluationKind = "qualitative"
	KindFeatureCorrectness EvaluationKind = "feature_correctness"
)

func ParseEvaluationKind(s string) (EvaluationKind, error) {
	switch k := EvaluationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindQualitative, KindFeatureCorrectness:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

type Provider string

const (
	ProviderOpenAI       Provider = "openai"
	ProviderOpenRouter   Provider = "openrouter"
	ProviderAnthropic    Provider = "anthropic"
	ProviderClaudeVertex Provider = "claude_vertex"
)

// Providers lists every transport the evaluator can be asked to use.
var Providers = []Provider{ProviderClaudeVertex, ProviderAnthropic, ProviderOpenAI, ProviderOpenRouter}

func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
}

const DefaultTemperature = 0.1

// EvaluationRequest is passed by value and never mutated after construction.
type EvaluationRequest struct {
	Query       string         `json:"user_query"`
	URL         string         `json:"app_url"`
	Provider    Provider       `json:"provider"`
	Kind        EvaluationKind `json:"evaluation_type"`
	Model       string         `json:"llm_model_name,omitempty"`
	Temperature float64        `json:"temperature"`
}

func NewEvaluationRequest(query, url string, provider Provider, kind EvaluationKind) EvaluationRequest {
	return EvaluationRequest{
		Query:       query,
		URL:         url,
		Provider:    provider,
		Kind:        kind,
		Temperature: DefaultTemperature,
	}
}

func (r EvaluationRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("%w: app url is required", ErrInvalidRequest)
	}
	if _, err := ParseEvaluationKind(string(r.Kind)); err != nil {
		return err
	}
	if _, err := ParseProvider(string(r.Provider)); err != nil {
		return err
	}
	if r.Temperature < 0 || r.Temperature > 1 {
		return fmt.Errorf("%w: temperature %.2f outside [0, 1]", ErrInvalidRequest, r.Temperature)
	}
	return nil
}

type EvaluationResult struct {
	ID                   string         `json:"evaluation_id,omitempty"`
	Kind                 EvaluationKind `json:"evaluation_type"`
	Provider             Provider       `json:"provider_used"`
	Success              bool           `json:"success"`
	ErrorMessage         string         `json:"error_message,omitempty"`
	ExecutionTimeSeconds *float64       `json:"execution_time_seconds,omitempty"`
	RawResponse          map[string]any `json:"raw_response,omitempty"`
}

// SessionOutcome is the result of one agent session within a fan-out.
type SessionOutcome struct {
	Slot     int            `json:"slot"`
	Success  bool           `json:"success"`
	Output   string         `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Verdict  *Verdict       `json:"verdict,omitempty"`
	TestPlan []TestPlanItem `json:"test_plan"`
}

// Verdict is the structured report an evaluation session is asked to return.
type Verdict struct {
	OverallStatus        string   `json:"Overall_status"`
	FailedFeaturesReason []string `json:"Failed_features_reason"`
	FailedElements       []string `json:"Failed_elements"`
}

func (v Verdict) Passed() bool {
	return strings.EqualFold(strings.TrimSpace(v.OverallStatus), "PASS")
}
