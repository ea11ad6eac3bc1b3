package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

func TestNewSchemaRegistryCompilesAllBuiltinSchemas(t *testing.T) {
	reg := NewSchemaRegistry()

	for name := range responseModelSchemas {
		schema, err := reg.GetSchema(name)
		require.NoError(t, err)
		assert.NotNil(t, schema)
	}
}

func TestGetSchemaUnknownName(t *testing.T) {
	reg := NewSchemaRegistry()

	_, err := reg.GetSchema("NoSuchModel")
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeTemplateNotFound, appErr.Code)
}

func TestValidateAcceptsWellFormedResult(t *testing.T) {
	reg := NewSchemaRegistry()

	value := map[string]any{
		"assessment":       "vague",
		"suggested_niches": []any{"boutique pet grooming", "mobile pet spa"},
		"reasoning":        "The stated niche is too broad to differentiate from competitors.",
	}

	appErr := reg.Validate("NicheReviewResult", value)
	assert.Nil(t, appErr)
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	reg := NewSchemaRegistry()

	value := map[string]any{
		"assessment": "vague",
	}

	appErr := reg.Validate("NicheReviewResult", value)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeLLMOutputInvalid, appErr.Code)
	assert.NotEmpty(t, appErr.Fields["issues"])
}

func TestValidateRejectsWrongEnumValue(t *testing.T) {
	reg := NewSchemaRegistry()

	value := map[string]any{
		"assessment":       "unknown_enum_value",
		"suggested_niches": []any{"a"},
		"reasoning":        "because",
	}

	appErr := reg.Validate("NicheReviewResult", value)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeLLMOutputInvalid, appErr.Code)
}

func TestValidateUnknownModel(t *testing.T) {
	reg := NewSchemaRegistry()

	appErr := reg.Validate("NoSuchModel", map[string]any{})
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeTemplateNotFound, appErr.Code)
}
