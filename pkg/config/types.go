package config

// Shared types used across configuration structs.

// CollaboratorConfig describes how to reach one external data collaborator
// used by the parameter enrichment pipeline (business, goals, strategies,
// measures, actions, issues, website).
type CollaboratorConfig struct {
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	TimeoutSec int    `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	APIKeyEnv  string `yaml:"api_key_env,omitempty"`
}

// RetryConfig describes exponential backoff retry settings. It is loaded
// and validated, but no caller reads it: llm.RetryingProvider uses its own
// fixed policy, and collaborator calls are not retried.
type RetryConfig struct {
	MaxAttempts  int `yaml:"max_attempts,omitempty" validate:"omitempty,min=1"`
	BaseDelayMs  int `yaml:"base_delay_ms,omitempty" validate:"omitempty,min=1"`
	MaxDelayMs   int `yaml:"max_delay_ms,omitempty" validate:"omitempty,min=1"`
}

// CircuitBreakerConfig describes provider circuit breaker settings. It is
// loaded but not read: llm.NewRetryingProvider uses fixed gobreaker settings.
type CircuitBreakerConfig struct {
	FailureThreshold uint    `yaml:"failure_threshold,omitempty"`
	FailureRatio     float64 `yaml:"failure_ratio,omitempty"`
	ResetTimeoutSec  int     `yaml:"reset_timeout_seconds,omitempty"`
}
