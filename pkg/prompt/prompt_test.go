package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	out, err := Render("Hello {name}, your goal is {goal}.", map[string]any{
		"name": "Jordan",
		"goal": "grow MRR",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Jordan, your goal is grow MRR.", out)
}

func TestRenderUnresolvedPlaceholder(t *testing.T) {
	_, err := Render("Hello {name}, your goal is {goal}.", map[string]any{
		"name": "Jordan",
	})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeTemplateUnresolved, appErr.Code)
	assert.Equal(t, "goal", appErr.Fields["name"])
}

func TestRenderNoPlaceholders(t *testing.T) {
	out, err := Render("Static prompt, no substitution needed.", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Static prompt, no substitution needed.", out)
}

func TestRenderNonStringValue(t *testing.T) {
	out, err := Render("You have {count} goals.", map[string]any{"count": 3})
	require.NoError(t, err)
	assert.Equal(t, "You have 3 goals.", out)
}
