package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// SessionRetentionDays is how many days to keep completed sessions
	// before soft-deleting them (setting deleted_at).
	SessionRetentionDays int `yaml:"session_retention_days"`

	// MessageRetention is how long a message is retained after its session
	// is soft-deleted, before the cleanup loop purges it outright. Named
	// "message retention seconds" at the environment-variable boundary.
	MessageRetention time.Duration `yaml:"message_retention"`

	// RecentlyDeletedWindow is how long a soft-deleted SavedQuery or
	// Campaign stays in the Result Artifact Store's in-process
	// recently-deleted filter, so a read racing a concurrent delete never
	// observes a row that is about to disappear.
	RecentlyDeletedWindow time.Duration `yaml:"recently_deleted_window"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		SessionRetentionDays:  365,
		MessageRetention:      90 * 24 * time.Hour,
		RecentlyDeletedWindow: 30 * time.Second,
		CleanupInterval:       1 * time.Hour,
	}
}
