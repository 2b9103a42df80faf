// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and CREW_ environment variables.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver selects the SQL driver: "sqlite" or "postgres".
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver-specific data source name.
	DBDSN string `koanf:"db_dsn"`

	// ChunkSize bounds concurrent record upserts during a recalculation.
	ChunkSize int `koanf:"chunk_size"`

	// FoundingWindowDays is how long after group creation a join counts as founding.
	FoundingWindowDays int `koanf:"founding_window_days"`

	// NotifyQueueSize bounds pending promotion notifications.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyWorkers sets the number of notification workers.
	NotifyWorkers int `koanf:"notify_workers"`

	// NotifyDedupeSize caps remembered promotion keys.
	NotifyDedupeSize int `koanf:"notify_dedupe_size"`

	// RedisAddr enables the Redis push sender when set.
	RedisAddr string `koanf:"redis_addr"`

	// RedisPassword and RedisDB configure the Redis connection.
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// PushChannelPrefix prefixes per-member push channels.
	PushChannelPrefix string `koanf:"push_channel_prefix"`

	// RecalcSchedule is a cron spec for sweeping all groups; empty disables it.
	RecalcSchedule string `koanf:"recalc_schedule"`

	// DefaultTierTheme is used for groups with an unknown theme.
	DefaultTierTheme string `koanf:"default_tier_theme"`

	// TierThresholds are the lower score bounds of tier levels 1..5.
	TierThresholds []int `koanf:"tier_thresholds"`

	// TierThemes adds or overrides tier name tables.
	TierThemes map[string][]string `koanf:"tier_themes"`

	// MaxLeaderboardLimit caps GET /groups/{id}/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DBDriver:            "sqlite",
		DBDSN:               "file:crewscore.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		ChunkSize:           10,
		FoundingWindowDays:  30,
		NotifyQueueSize:     10_000,
		NotifyWorkers:       runtime.NumCPU(),
		NotifyDedupeSize:    50_000,
		PushChannelPrefix:   "crew:push:",
		DefaultTierTheme:    "classic",
		TierThresholds:      []int{0, 200, 400, 600, 800},
		MaxLeaderboardLimit: 100,
	}
}

// FoundingWindow returns the founding window as a duration.
func (c *Config) FoundingWindow() time.Duration {
	return time.Duration(c.FoundingWindowDays) * 24 * time.Hour
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != "sqlite" && c.DBDriver != "postgres":
		return fmt.Errorf("%w: unsupported db_driver %q", ErrInvalidConfig, c.DBDriver)
	case c.DBDSN == "":
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	case c.ChunkSize < 1:
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	case c.FoundingWindowDays < 0:
		return fmt.Errorf("%w: founding_window_days must not be negative", ErrInvalidConfig)
	}
	return nil
}
