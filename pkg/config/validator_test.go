package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfigForValidation() *Config {
	one := 5
	return &Config{
		Defaults:  &Defaults{LLMProvider: "anthropic-default", MaxTurns: &one},
		Queue:     DefaultQueueConfig(),
		Coaching:  DefaultCoachingConfig(),
		Retention: DefaultRetentionConfig(),
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"anthropic-default": {
				Type:      LLMProviderTypeAnthropic,
				Model:     "claude-sonnet-4-5",
				APIKeyEnv: "ANTHROPIC_API_KEY",
			},
			"local-default": {
				Type:  LLMProviderTypeLocal,
				Model: "llama-3.1-70b",
			},
		}),
		Collaborators: map[string]*CollaboratorConfig{
			"measures": {BaseURL: "http://measures.internal", TimeoutSec: 5},
		},
	}
}

func TestValidateAll_ValidConfig(t *testing.T) {
	v := NewValidator(validConfigForValidation())
	require.NoError(t, v.ValidateAll())
}

func TestValidateLLMProviders(t *testing.T) {
	tests := []struct {
		name      string
		providers map[string]*LLMProviderConfig
		wantErr   bool
		errMsg    string
	}{
		{
			name: "invalid provider type",
			providers: map[string]*LLMProviderConfig{
				"bad": {Type: LLMProviderType("bogus"), Model: "x", APIKeyEnv: "X"},
			},
			wantErr: true,
			errMsg:  "invalid provider type",
		},
		{
			name: "missing model",
			providers: map[string]*LLMProviderConfig{
				"bad": {Type: LLMProviderTypeAnthropic, APIKeyEnv: "X"},
			},
			wantErr: true,
			errMsg:  "model is required",
		},
		{
			name: "remote provider missing api key env",
			providers: map[string]*LLMProviderConfig{
				"bad": {Type: LLMProviderTypeOpenAI, Model: "gpt-4o"},
			},
			wantErr: true,
			errMsg:  "api_key_env is required",
		},
		{
			name: "local provider does not require api key env",
			providers: map[string]*LLMProviderConfig{
				"local": {Type: LLMProviderTypeLocal, Model: "llama-3.1-70b"},
			},
			wantErr: false,
		},
		{
			name: "negative max output tokens",
			providers: map[string]*LLMProviderConfig{
				"bad": {Type: LLMProviderTypeAnthropic, Model: "x", APIKeyEnv: "X", MaxOutputTokens: -1},
			},
			wantErr: true,
			errMsg:  "must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LLMProviderRegistry: NewLLMProviderRegistry(tt.providers)}
			v := NewValidator(cfg)
			err := v.validateLLMProviders()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateCollaborators(t *testing.T) {
	tests := []struct {
		name          string
		collaborators map[string]*CollaboratorConfig
		wantErr       bool
		errMsg        string
	}{
		{
			name: "missing base url",
			collaborators: map[string]*CollaboratorConfig{
				"measures": {},
			},
			wantErr: true,
			errMsg:  "base_url is required",
		},
		{
			name: "invalid base url",
			collaborators: map[string]*CollaboratorConfig{
				"measures": {BaseURL: "not a url"},
			},
			wantErr: true,
			errMsg:  "invalid URL",
		},
		{
			name: "negative timeout",
			collaborators: map[string]*CollaboratorConfig{
				"measures": {BaseURL: "http://measures.internal", TimeoutSec: -1},
			},
			wantErr: true,
			errMsg:  "must be non-negative",
		},
		{
			name: "valid collaborator",
			collaborators: map[string]*CollaboratorConfig{
				"measures": {BaseURL: "http://measures.internal", TimeoutSec: 5},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Collaborators: tt.collaborators}
			v := NewValidator(cfg)
			err := v.validateCollaborators()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	registry := NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"anthropic-default": {Type: LLMProviderTypeAnthropic, Model: "x", APIKeyEnv: "X"},
	})

	tests := []struct {
		name     string
		defaults *Defaults
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "nil defaults is valid",
			defaults: nil,
			wantErr:  false,
		},
		{
			name:     "unknown provider reference",
			defaults: &Defaults{LLMProvider: "does-not-exist"},
			wantErr:  true,
			errMsg:   "not found",
		},
		{
			name: "max turns zero",
			defaults: &Defaults{LLMProvider: "anthropic-default", MaxTurns: func() *int {
				zero := 0
				return &zero
			}()},
			wantErr: true,
			errMsg:  "must be at least 1",
		},
		{
			name:     "valid defaults",
			defaults: &Defaults{LLMProvider: "anthropic-default"},
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Defaults: tt.defaults, LLMProviderRegistry: registry}
			v := NewValidator(cfg)
			err := v.validateDefaults()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateRetention(t *testing.T) {
	tests := []struct {
		name      string
		retention *RetentionConfig
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "nil retention",
			retention: nil,
			wantErr:   true,
			errMsg:    "retention configuration is nil",
		},
		{
			name:      "valid defaults",
			retention: DefaultRetentionConfig(),
			wantErr:   false,
		},
		{
			name: "job retention days zero",
			retention: func() *RetentionConfig {
				r := DefaultRetentionConfig()
				r.JobRetentionDays = 0
				return r
			}(),
			wantErr: true,
			errMsg:  "job_retention_days must be at least 1",
		},
		{
			name: "session retention days zero",
			retention: func() *RetentionConfig {
				r := DefaultRetentionConfig()
				r.SessionRetentionDays = 0
				return r
			}(),
			wantErr: true,
			errMsg:  "session_retention_days must be at least 1",
		},
		{
			name: "event ttl zero",
			retention: func() *RetentionConfig {
				r := DefaultRetentionConfig()
				r.EventTTL = 0
				return r
			}(),
			wantErr: true,
			errMsg:  "event_ttl must be positive",
		},
		{
			name: "cleanup interval zero",
			retention: func() *RetentionConfig {
				r := DefaultRetentionConfig()
				r.CleanupInterval = 0
				return r
			}(),
			wantErr: true,
			errMsg:  "cleanup_interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Retention: tt.retention}
			v := NewValidator(cfg)
			err := v.validateRetention()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateAll_StopsAtFirstError(t *testing.T) {
	cfg := validConfigForValidation()
	cfg.Queue.WorkerCount = 0 // first stage should fail

	v := NewValidator(cfg)
	err := v.ValidateAll()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue validation failed")
}
