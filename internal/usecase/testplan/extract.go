package testplan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"kairos/internal/domain/entity"
)

// SplitThreshold is the plan size above which a plan is run as two halves.
const SplitThreshold = 4

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// Extract reads the test plan from the first ```json fenced block in text.
// A missing block and a block that is not a non-empty list of test items
// are reported as different errors.
func Extract(text string) ([]entity.TestPlanItem, error) {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil {
		return nil, entity.ErrNoStructuredBlock
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(m[1])))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrMalformedTestPlan, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", entity.ErrMalformedTestPlan)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON list of test items", entity.ErrMalformedTestPlan)
	}

	var items []entity.TestPlanItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrMalformedTestPlan, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: test plan is empty", entity.ErrMalformedTestPlan)
	}
	return items, nil
}

// Split returns the plan unchanged when it has at most threshold items,
// otherwise two halves with the smaller one first.
func Split(plan []entity.TestPlanItem, threshold int) [][]entity.TestPlanItem {
	if len(plan) <= threshold {
		return [][]entity.TestPlanItem{plan}
	}
	mid := len(plan) / 2
	return [][]entity.TestPlanItem{plan[:mid:mid], plan[mid:]}
}
