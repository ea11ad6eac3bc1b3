package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLLMProviders(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"anthropic-default": {
			Type:      LLMProviderTypeAnthropic,
			Model:     "claude-sonnet-4-5",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		"override-me": {
			Type:  LLMProviderTypeOpenAI,
			Model: "gpt-4o-mini",
		},
	}

	user := map[string]LLMProviderConfig{
		"tenant-local": {
			Type:  LLMProviderTypeLocal,
			Model: "llama-3.1-70b",
		},
		"override-me": {
			Type:      LLMProviderTypeOpenAI,
			Model:     "gpt-4o",
			APIKeyEnv: "TENANT_OPENAI_KEY",
		},
	}

	result := mergeLLMProviders(builtin, user)

	assert.Len(t, result, 3)

	assert.Contains(t, result, "anthropic-default")
	assert.Equal(t, "claude-sonnet-4-5", result["anthropic-default"].Model)

	assert.Contains(t, result, "tenant-local")
	assert.Equal(t, LLMProviderTypeLocal, result["tenant-local"].Type)

	// user config overrides built-in with the same name
	assert.Contains(t, result, "override-me")
	assert.Equal(t, "gpt-4o", result["override-me"].Model)
	assert.Equal(t, "TENANT_OPENAI_KEY", result["override-me"].APIKeyEnv)
}

func TestMergeLLMProvidersEmptyInputs(t *testing.T) {
	result := mergeLLMProviders(nil, nil)
	assert.Empty(t, result)
}

func TestMergeLLMProvidersPreservesBuiltinWhenNoUserOverride(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"only-builtin": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5"},
	}

	result := mergeLLMProviders(builtin, nil)

	assert.Len(t, result, 1)
	assert.Equal(t, "claude-sonnet-4-5", result["only-builtin"].Model)
}

func TestMergeCollaborators(t *testing.T) {
	builtin := map[string]CollaboratorConfig{
		"measures": {BaseURL: "http://measures.internal", TimeoutSec: 5},
	}

	user := map[string]CollaboratorConfig{
		"measures": {BaseURL: "http://measures.tenant.internal", TimeoutSec: 10},
		"website":  {BaseURL: "http://website-scanner.internal"},
	}

	result := mergeCollaborators(builtin, user)

	assert.Len(t, result, 2)
	assert.Equal(t, "http://measures.tenant.internal", result["measures"].BaseURL)
	assert.Equal(t, 10, result["measures"].TimeoutSec)
	assert.Contains(t, result, "website")
}

func TestMergeCollaboratorsDefensiveCopy(t *testing.T) {
	builtin := map[string]CollaboratorConfig{
		"measures": {BaseURL: "http://measures.internal"},
	}

	result := mergeCollaborators(builtin, nil)
	result["measures"].BaseURL = "mutated"

	assert.Equal(t, "http://measures.internal", builtin["measures"].BaseURL)
}
