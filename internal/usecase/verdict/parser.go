package verdict

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"kairos/internal/domain/entity"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// Parse pulls the verdict object out of an evaluation answer. It prefers a
// ```json fenced block and falls back to the outermost braces.
func Parse(response string) (*entity.Verdict, error) {
	response = strings.TrimSpace(response)

	jsonStr := ""
	if m := fencedJSON.FindStringSubmatch(response); m != nil {
		jsonStr = m[1]
	} else {
		start := strings.Index(response, "{")
		end := strings.LastIndex(response, "}")
		if start == -1 || end < start {
			return nil, fmt.Errorf("no JSON found in response")
		}
		jsonStr = response[start : end+1]
	}

	var raw struct {
		OverallStatus        string          `json:"Overall_status"`
		FailedFeaturesReason json.RawMessage `json:"Failed_features_reason"`
		FailedElements       json.RawMessage `json:"Failed_elements"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if strings.TrimSpace(raw.OverallStatus) == "" {
		return nil, fmt.Errorf("verdict has no Overall_status")
	}

	return &entity.Verdict{
		OverallStatus:        strings.ToUpper(strings.TrimSpace(raw.OverallStatus)),
		FailedFeaturesReason: stringList(raw.FailedFeaturesReason),
		FailedElements:       stringList(raw.FailedElements),
	}, nil
}

// stringList accepts a list of strings, a single string or a list of
// arbitrary values, which are kept in their JSON form.
func stringList(data json.RawMessage) []string {
	if len(data) == 0 || string(data) == "null" {
		return []string{}
	}

	var list entity.TextList
	if err := json.Unmarshal(data, &list); err == nil {
		return []string(list)
	}

	var values []json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return []string{string(data)}
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}
