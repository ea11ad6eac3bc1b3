package config

import "fmt"

// Config is the umbrella configuration object that encapsulates all
// registries, defaults, and configuration state for the gateway. This is
// the primary object returned by Initialize() and used throughout the
// application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults
	Defaults *Defaults

	// Subsystem configuration
	Queue     *QueueConfig
	Coaching  *CoachingConfig
	Retention *RetentionConfig

	// Component registries
	LLMProviderRegistry *LLMProviderRegistry
	Collaborators       map[string]*CollaboratorConfig
}

// ConfigStats contains statistics about loaded configuration, surfaced in
// startup logs.
type ConfigStats struct {
	LLMProviders  int
	Collaborators int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders:  len(c.LLMProviderRegistry.GetAll()),
		Collaborators: len(c.Collaborators),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}

// GetCollaborator retrieves an external collaborator configuration by name.
func (c *Config) GetCollaborator(name string) (*CollaboratorConfig, error) {
	cfg, ok := c.Collaborators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollaboratorNotFound, name)
	}
	return cfg, nil
}
