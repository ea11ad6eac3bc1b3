package config

import (
	"fmt"
	"net/url"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error). Order: queue → coaching → LLM providers → collaborators →
// defaults → retention, so dependents are validated after what they reference.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateCoaching(); err != nil {
		return fmt.Errorf("coaching validation failed: %w", err)
	}

	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}

	if err := v.validateCollaborators(); err != nil {
		return fmt.Errorf("collaborator validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}

	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentPerTenant < 1 {
		return fmt.Errorf("max_concurrent_per_tenant must be at least 1, got %d", q.MaxConcurrentPerTenant)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", q.PollIntervalJitter, q.PollInterval)
	}
	if q.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive, got %v", q.JobTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", q.OrphanDetectionInterval)
	}
	if q.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %v", q.OrphanThreshold)
	}
	if q.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %v", q.HeartbeatInterval)
	}
	if q.HeartbeatInterval >= q.OrphanThreshold {
		return fmt.Errorf("heartbeat_interval must be less than orphan_threshold to prevent false orphan detection, got heartbeat=%v threshold=%v", q.HeartbeatInterval, q.OrphanThreshold)
	}
	if q.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", q.MaxAttempts)
	}

	return nil
}

func (v *Validator) validateCoaching() error {
	c := v.cfg.Coaching
	if c == nil {
		return fmt.Errorf("coaching configuration is nil")
	}

	if c.MaxTurnsDefault < 1 {
		return fmt.Errorf("max_turns_default must be at least 1, got %d", c.MaxTurnsDefault)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %v", c.IdleTimeout)
	}
	if c.HardExpiry <= 0 {
		return fmt.Errorf("hard_expiry must be positive, got %v", c.HardExpiry)
	}
	if c.IdleTimeout >= c.HardExpiry {
		return fmt.Errorf("idle_timeout must be less than hard_expiry, got idle=%v expiry=%v", c.IdleTimeout, c.HardExpiry)
	}
	if c.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", c.OrphanDetectionInterval)
	}

	return nil
}

func (v *Validator) validateLLMProviders() error {
	for name, provider := range v.cfg.LLMProviderRegistry.GetAll() {
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", provider.Type))
		}
		if provider.Model == "" {
			return NewValidationError("llm_provider", name, "model", fmt.Errorf("model is required"))
		}
		if provider.Type != LLMProviderTypeLocal && provider.APIKeyEnv == "" {
			return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("api_key_env is required for remote providers"))
		}
		if provider.MaxOutputTokens < 0 {
			return NewValidationError("llm_provider", name, "max_output_tokens", fmt.Errorf("must be non-negative"))
		}
		if provider.Retry.MaxAttempts < 0 {
			return NewValidationError("llm_provider", name, "retry.max_attempts", fmt.Errorf("must be non-negative"))
		}
	}

	return nil
}

func (v *Validator) validateCollaborators() error {
	for name, c := range v.cfg.Collaborators {
		if c.BaseURL == "" {
			return NewValidationError("collaborator", name, "base_url", fmt.Errorf("base_url is required"))
		}
		if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
			return NewValidationError("collaborator", name, "base_url", fmt.Errorf("invalid URL: %w", err))
		}
		if c.TimeoutSec < 0 {
			return NewValidationError("collaborator", name, "timeout_seconds", fmt.Errorf("must be non-negative"))
		}
	}

	return nil
}

func (v *Validator) validateDefaults() error {
	defaults := v.cfg.Defaults
	if defaults == nil {
		return nil
	}

	if defaults.LLMProvider != "" && !v.cfg.LLMProviderRegistry.Has(defaults.LLMProvider) {
		return NewValidationError("defaults", "", "llm_provider", fmt.Errorf("provider '%s' not found", defaults.LLMProvider))
	}
	if defaults.MaxTurns != nil && *defaults.MaxTurns < 1 {
		return NewValidationError("defaults", "", "max_turns", fmt.Errorf("must be at least 1"))
	}

	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return fmt.Errorf("retention configuration is nil")
	}

	if r.JobRetentionDays < 1 {
		return fmt.Errorf("job_retention_days must be at least 1, got %d", r.JobRetentionDays)
	}
	if r.SessionRetentionDays < 1 {
		return fmt.Errorf("session_retention_days must be at least 1, got %d", r.SessionRetentionDays)
	}
	if r.EventTTL <= 0 {
		return fmt.Errorf("event_ttl must be positive, got %v", r.EventTTL)
	}
	if r.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive, got %v", r.CleanupInterval)
	}

	return nil
}
