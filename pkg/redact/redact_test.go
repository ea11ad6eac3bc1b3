package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueString(t *testing.T) {
	s := Value("a secret goal title")
	assert.Equal(t, "string", s.Type)
	assert.Equal(t, len("a secret goal title"), s.Length)
	assert.NotContains(t, s.String(), "secret")
}

func TestValueNil(t *testing.T) {
	assert.Equal(t, Summary{Type: "nil"}, Value(nil))
}

func TestValueSlice(t *testing.T) {
	s := Value([]string{"a", "b", "c"})
	assert.Equal(t, "slice", s.Type)
	assert.Equal(t, 3, s.Length)
}

func TestValueMap(t *testing.T) {
	s := Value(map[string]any{"a": 1, "b": 2})
	assert.Equal(t, "map", s.Type)
	assert.Equal(t, 2, s.Length)
}

func TestParamsNeverLeaksContent(t *testing.T) {
	params := map[string]any{
		"goal":  "increase revenue by forty percent this quarter",
		"count": 5,
	}

	summaries := Params(params)
	require := assert.New(t)
	require.Len(summaries, 2)
	for _, v := range summaries {
		s := v.String()
		require.NotContains(s, "revenue")
		require.NotContains(s, "forty")
	}
}

func TestKeysOnly(t *testing.T) {
	params := map[string]any{"goal": "sensitive", "industry": "sensitive too"}
	keys := Keys(params)
	assert.ElementsMatch(t, []string{"goal", "industry"}, keys)
}
