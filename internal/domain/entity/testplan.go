package entity

import (
	"encoding/json"
	"fmt"
)

type TestPlanItem struct {
	Feature     string   `json:"Test_feature"`
	Description string   `json:"Description"`
	Actions     TextList `json:"Actions"`
	Assertions  TextList `json:"Assertions"`
}

// TextList decodes either a JSON string or an array of strings.
// Models are inconsistent about which one they emit for actions and assertions.
type TextList []string

func (l *TextList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = TextList{}
		} else {
			*l = TextList{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = TextList(many)
	return nil
}
