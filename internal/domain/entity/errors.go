package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest      = errors.New("invalid evaluation request")
	ErrUnsupportedKind     = errors.New("unsupported evaluation type")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrFetch               = errors.New("failed to fetch page content")
	ErrNoStructuredBlock   = errors.New("no JSON code block found in test plan response")
	ErrMalformedTestPlan   = errors.New("malformed test plan")
	ErrMaxIterations       = errors.New("max iterations exceeded")
	ErrSessionUsed         = errors.New("agent session already used")
	ErrInvalidSlot         = errors.New("invalid session slot")
	ErrPoolClosed          = errors.New("session pool is closed")
)

// ToolInvocationError reports a tool call the provider refused or failed.
type ToolInvocationError struct {
	Tool    string
	Slot    int
	Message string
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %s failed on slot %d: %s", e.Tool, e.Slot, e.Message)
}

// ValidationError reports arguments that do not match a tool's parameter schema.
type ValidationError struct {
	Tool   string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.Tool, strings.Join(e.Issues, "; "))
}
