package config

import (
	"fmt"
	"sync"
	"time"
)

// LLMProviderConfig defines how the gateway drives one named LLM provider
// (e.g. "anthropic-default", "openai-fast", "local-gpu-0"). Each topic's
// RuntimeConfig.ModelCode references a provider by name.
type LLMProviderConfig struct {
	// Type selects the provider backend (required).
	Type LLMProviderType `yaml:"type" validate:"required"`

	// Model is the model identifier passed to the provider SDK (required).
	Model string `yaml:"model" validate:"required"`

	// APIKeyEnv names the environment variable holding the provider API key.
	// Not required for the local gRPC provider.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// BaseURL overrides the provider's default endpoint (used by the local
	// gRPC provider to point at a specific host:port).
	BaseURL string `yaml:"base_url,omitempty"`

	// RequestTimeout is a per-call timeout for this provider. It is not
	// read anywhere; no per-provider timeout is applied to calls.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// MaxOutputTokens is a response size bound for this provider. It is
	// validated but not read; the token limit sent comes from the topic's
	// RuntimeConfig.MaxTokens.
	MaxOutputTokens int `yaml:"max_output_tokens,omitempty" validate:"omitempty,min=1"`

	// Retry holds retry settings for this provider. They are validated but
	// not passed to the RetryingProvider, which uses a fixed policy.
	Retry RetryConfig `yaml:"retry,omitempty"`

	// CircuitBreaker holds breaker settings for this provider. They are not
	// passed to the RetryingProvider, whose gobreaker settings are fixed.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker,omitempty"`
}

// LLMProviderRegistry stores LLM provider configurations in memory with
// thread-safe access.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewLLMProviderRegistry creates a new LLM provider registry.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	// Defensive copy to prevent external mutation.
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &LLMProviderRegistry{
		providers: copied,
	}
}

// Get retrieves an LLM provider configuration by name (thread-safe).
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return provider, nil
}

// GetAll returns all LLM provider configurations (thread-safe, returns a copy).
func (r *LLMProviderRegistry) GetAll() map[string]*LLMProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*LLMProviderConfig, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// Has checks if an LLM provider exists in the registry (thread-safe).
func (r *LLMProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.providers[name]
	return exists
}

// Len returns the number of LLM providers in the registry (thread-safe).
func (r *LLMProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// builtinLLMProviders returns the gateway's built-in provider fallbacks,
// used when a deployment supplies no llm-providers.yaml entry for a name
// that a built-in topic references.
func builtinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"anthropic-default": {
			Type:            LLMProviderTypeAnthropic,
			Model:           "claude-sonnet-4-5",
			APIKeyEnv:       "ANTHROPIC_API_KEY",
			RequestTimeout:  60 * time.Second,
			MaxOutputTokens: 4096,
			Retry:           RetryConfig{MaxAttempts: 3, BaseDelayMs: 500, MaxDelayMs: 8000},
			CircuitBreaker:  CircuitBreakerConfig{FailureThreshold: 5, FailureRatio: 0.6, ResetTimeoutSec: 30},
		},
		"openai-default": {
			Type:            LLMProviderTypeOpenAI,
			Model:           "gpt-4o",
			APIKeyEnv:       "OPENAI_API_KEY",
			RequestTimeout:  60 * time.Second,
			MaxOutputTokens: 4096,
			Retry:           RetryConfig{MaxAttempts: 3, BaseDelayMs: 500, MaxDelayMs: 8000},
			CircuitBreaker:  CircuitBreakerConfig{FailureThreshold: 5, FailureRatio: 0.6, ResetTimeoutSec: 30},
		},
	}
}
