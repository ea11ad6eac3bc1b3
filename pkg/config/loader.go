package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// structValidator runs go-playground/validator struct-tag checks (required,
// url, min, omitempty...) over individual config structs before the
// hand-rolled cross-reference checks in Validator run.
var structValidator = validator.New(validator.WithRequiredStructEnabled())

// GatewayYAMLConfig represents the complete gateway.yaml file structure.
type GatewayYAMLConfig struct {
	Defaults      *Defaults                     `yaml:"defaults"`
	Queue         *QueueConfig                  `yaml:"queue"`
	Coaching      *CoachingConfig               `yaml:"coaching"`
	Retention     *RetentionConfig              `yaml:"retention"`
	Collaborators map[string]CollaboratorConfig `yaml:"collaborators"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined configurations
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"llm_providers", stats.LLMProviders,
		"collaborators", stats.Collaborators)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	gatewayConfig, err := loader.loadGatewayYAML()
	if err != nil {
		return nil, NewLoadError("gateway.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	llmProvidersMerged := mergeLLMProviders(builtinLLMProviders(), llmProviders)
	collaboratorsMerged := mergeCollaborators(nil, gatewayConfig.Collaborators)

	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)

	defaults := gatewayConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.LLMProvider == "" {
		defaults.LLMProvider = "anthropic-default"
	}

	queueConfig := DefaultQueueConfig()
	if gatewayConfig.Queue != nil {
		if err := mergo.Merge(queueConfig, gatewayConfig.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	coachingConfig := DefaultCoachingConfig()
	if gatewayConfig.Coaching != nil {
		if err := mergo.Merge(coachingConfig, gatewayConfig.Coaching, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge coaching config: %w", err)
		}
	}

	retentionConfig := DefaultRetentionConfig()
	if gatewayConfig.Retention != nil {
		if err := mergo.Merge(retentionConfig, gatewayConfig.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		Queue:               queueConfig,
		Coaching:            coachingConfig,
		Retention:           retentionConfig,
		LLMProviderRegistry: llmProviderRegistry,
		Collaborators:       collaboratorsMerged,
	}, nil
}

// validate performs comprehensive validation on loaded configuration: first
// struct-tag validation per component, then cross-reference invariants.
func validate(cfg *Config) error {
	for name, provider := range cfg.LLMProviderRegistry.GetAll() {
		if err := structValidator.Struct(provider); err != nil {
			return NewValidationError("llm_provider", name, "", err)
		}
	}
	for name, c := range cfg.Collaborators {
		if err := structValidator.Struct(c); err != nil {
			return NewValidationError("collaborator", name, "", err)
		}
	}

	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables before parsing so YAML never has to
	// carry provider API keys or deployment-specific hostnames in the clear.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadGatewayYAML() (*GatewayYAMLConfig, error) {
	var config GatewayYAMLConfig
	config.Collaborators = make(map[string]CollaboratorConfig)

	if err := l.loadYAML("gateway.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var config LLMProvidersYAMLConfig
	config.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &config); err != nil {
		return nil, err
	}

	return config.LLMProviders, nil
}
