package prompts

import (
	_ "embed"
)

//go:embed agent_system.txt
var AgentSystemPrompt string

//go:embed testplan_system.txt
var TestPlanSystemPrompt string

//go:embed testplan_user.txt
var testPlanUserTemplate string

//go:embed evaluation.txt
var evaluationTemplate string

//go:embed qualitative.txt
var qualitativeTemplate string
