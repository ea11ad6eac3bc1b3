package config

import "time"

// QueueConfig contains async job queue and worker pool configuration.
// These values control how PENDING jobs are polled, claimed, and processed.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per replica/pod.
	// Each worker independently polls and claims jobs.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentPerTenant is the per-tenant concurrency limit enforced by
	// Store.ClaimNext, which skips a tenant's PENDING jobs while that many of
	// its jobs are PROCESSING. Zero or less disables the check.
	MaxConcurrentPerTenant int `yaml:"max_concurrent_per_tenant"`

	// PollInterval is the base interval for checking pending jobs.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval ± PollIntervalJitter.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// JobTimeout is the maximum time a single job execution may run.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// GracefulShutdownTimeout is a shutdown bound for in-flight jobs. It is
	// loaded and validated, but WorkerPool.Stop does not read it and waits
	// for in-flight jobs without a time limit.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often to scan for orphaned jobs stuck
	// in PROCESSING past their heartbeat.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long a job can go without a heartbeat before
	// it is considered orphaned and recovered to PENDING for retry.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`

	// HeartbeatInterval is how often a worker touches its claimed job's
	// heartbeat column while processing.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// MaxAttempts is the number of processing attempts before a job is
	// marked FAILED with error_code RETRIES_EXHAUSTED.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrentPerTenant:  10,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		JobTimeout:              5 * time.Minute,
		GracefulShutdownTimeout: 5 * time.Minute,
		OrphanDetectionInterval: 1 * time.Minute,
		OrphanThreshold:         2 * time.Minute,
		HeartbeatInterval:       15 * time.Second,
		MaxAttempts:             3,
	}
}
