package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FencedBlock(t *testing.T) {
	response := "I tested every feature.\n\n```json\n" + `{
  "Overall_status": "FAIL",
  "Failed_features_reason": ["Contact form: submit button does nothing"],
  "Failed_elements": ["button#submit"]
}` + "\n```"

	v, err := Parse(response)
	require.NoError(t, err)
	assert.Equal(t, "FAIL", v.OverallStatus)
	assert.False(t, v.Passed())
	assert.Equal(t, []string{"Contact form: submit button does nothing"}, v.FailedFeaturesReason)
	assert.Equal(t, []string{"button#submit"}, v.FailedElements)
}

func TestParse_WithTextAround(t *testing.T) {
	response := `Here's my evaluation:

{"Overall_status": "pass", "Failed_features_reason": [], "Failed_elements": []}

Hope this helps!`

	v, err := Parse(response)
	require.NoError(t, err)
	assert.True(t, v.Passed())
	assert.Empty(t, v.FailedFeaturesReason)
	assert.Empty(t, v.FailedElements)
}

func TestParse_LooseFieldTypes(t *testing.T) {
	v, err := Parse(`{"Overall_status": "FAIL", "Failed_features_reason": "Gallery broken", "Failed_elements": [{"selector": ".lightbox"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gallery broken"}, v.FailedFeaturesReason)
	assert.Equal(t, []string{`{"selector": ".lightbox"}`}, v.FailedElements)
}

func TestParse_Invalid(t *testing.T) {
	for _, response := range []string{
		"This is not JSON at all",
		"```json\n{broken\n```",
		`{"status": "PASS"}`,
		"} backwards {",
	} {
		_, err := Parse(response)
		assert.Error(t, err, response)
	}
}
