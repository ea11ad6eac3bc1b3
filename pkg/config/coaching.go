package config

import "time"

// CoachingConfig controls the conversation session engine: idle detection,
// hard expiry, and the default turn budget for CONVERSATION_COACHING topics.
type CoachingConfig struct {
	// MaxTurnsDefault is a turn budget for topics without their own
	// max_turns. It is loaded and validated, but the session engine does
	// not read it: a topic with no max_turns gets a fixed budget of 20.
	MaxTurnsDefault int `yaml:"max_turns_default"`

	// IdleTimeout is the idle threshold handed to the session sweep, which
	// uses it only to widen its query. The read-time "paused" projection
	// uses the topic's own idle_timeout (30 minutes when unset), not this
	// value.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// HardExpiry is the absolute lifetime of a session from creation,
	// regardless of activity. The engine does not read it: it stamps
	// expires_at as created_at + 14 days. The periodic sweep moves sessions
	// past expires_at to ABANDONED, and resume rejects them with
	// SESSION_EXPIRED; message does not check expires_at.
	HardExpiry time.Duration `yaml:"hard_expiry"`

	// OrphanDetectionInterval is how often the sweep for expired/idle
	// sessions runs.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`
}

// DefaultCoachingConfig returns the built-in conversation engine defaults.
func DefaultCoachingConfig() *CoachingConfig {
	return &CoachingConfig{
		MaxTurnsDefault:         12,
		IdleTimeout:             30 * time.Minute,
		HardExpiry:              14 * 24 * time.Hour,
		OrphanDetectionInterval: 10 * time.Minute,
	}
}
