package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"kairos/internal/domain/entity"
)

var (
	testPlanUser = template.Must(template.New("testplan_user").Parse(testPlanUserTemplate))
	evaluation   = template.Must(template.New("evaluation").Parse(evaluationTemplate))
	qualitative  = template.Must(template.New("qualitative").Parse(qualitativeTemplate))
)

type TestPlanData struct {
	Query string
	HTML  string
}

type EvaluationData struct {
	TestPlan string
	URL      string
}

type QualitativeData struct {
	Query string
	URL   string
}

func GenerateTestPlanPrompt(query, html string) (string, error) {
	return render(testPlanUser, TestPlanData{Query: query, HTML: html})
}

// GenerateEvaluationPrompt embeds the plan as indented JSON so the model sees
// the same field names it produced.
func GenerateEvaluationPrompt(plan []entity.TestPlanItem, url string) (string, error) {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode test plan: %w", err)
	}
	return render(evaluation, EvaluationData{TestPlan: string(data), URL: url})
}

func GenerateQualitativePrompt(query, url string) (string, error) {
	return render(qualitative, QualitativeData{Query: query, URL: url})
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
