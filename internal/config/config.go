// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package config loads Sentinel configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Anticheat   AnticheatConfig   `koanf:"anticheat"`
	Presence    PresenceConfig    `koanf:"presence"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Security    SecurityConfig    `koanf:"security"`
	NATS        NATSConfig        `koanf:"nats"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings for the violation and ban ledger.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads of 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// AnticheatConfig carries every detector threshold and escalation cutoff.
type AnticheatConfig struct {
	MovementWindow int `koanf:"movement_window"`
	KillWindow     int `koanf:"kill_window"`
	Shards         int `koanf:"shards"`

	SpeedSamples        int           `koanf:"speed_samples"`
	MaxSpeed            float64       `koanf:"max_speed"`
	TeleportDistance    float64       `koanf:"teleport_distance"`
	TeleportMaxInterval time.Duration `koanf:"teleport_max_interval"`
	MaxVerticalSpeed    float64       `koanf:"max_vertical_speed"`

	AimbotMinKills      int           `koanf:"aimbot_min_kills"`
	AimbotHeadshotRatio float64       `koanf:"aimbot_headshot_ratio"`
	ESPDistance         float64       `koanf:"esp_distance"`
	ESPMinLongKills     int           `koanf:"esp_min_long_kills"`
	RapidFireKills      int           `koanf:"rapid_fire_kills"`
	RapidFireWindow     time.Duration `koanf:"rapid_fire_window"`

	WarningThreshold      int           `koanf:"warning_threshold"`
	TempBanThreshold      int           `koanf:"temp_ban_threshold"`
	PermanentBanThreshold int           `koanf:"permanent_ban_threshold"`
	TempBanSeverity       int           `koanf:"temp_ban_severity"`
	PermanentBanSeverity  int           `koanf:"permanent_ban_severity"`
	KickSeverity          int           `koanf:"kick_severity"`
	ViolationWindow       time.Duration `koanf:"violation_window"`
	TempBanDuration       time.Duration `koanf:"temp_ban_duration"`
	HistoryDays           int           `koanf:"history_days"`

	SweepInterval time.Duration `koanf:"sweep_interval"`
	StoreTimeout  time.Duration `koanf:"store_timeout"`

	// ResetKillStatsPerMatch clears kill counters when a session ends instead
	// of keeping them until tracking is explicitly cleared.
	ResetKillStatsPerMatch bool `koanf:"reset_kill_stats_per_match"`

	// Severity maps violation type to its base severity (1-10).
	Severity map[string]int `koanf:"severity"`
}

// PresenceConfig configures the game-server presence endpoint.
type PresenceConfig struct {
	APIKey      string        `koanf:"api_key"`
	MaxAttempts int           `koanf:"max_attempts"`
	AttemptTTL  time.Duration `koanf:"attempt_ttl"`
}

// CredentialsConfig configures token issuing and the badger-backed registry.
type CredentialsConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	JWTSecret  string        `koanf:"jwt_secret"`
	Issuer     string        `koanf:"issuer"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
}

// SecurityConfig configures the moderation API.
type SecurityConfig struct {
	AdminUsername     string `koanf:"admin_username"`
	AdminPassword     string `koanf:"admin_password"`
	ModeratorUsername string `koanf:"moderator_username"`
	ModeratorPassword string `koanf:"moderator_password"`

	// AuthzPolicyPath overrides the embedded casbin policy when set.
	AuthzPolicyPath string `koanf:"authz_policy_path"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// Per-account ingest throttle for telemetry and violation reports.
	IngestRatePerSecond float64 `koanf:"ingest_rate_per_second"`
	IngestBurst         int     `koanf:"ingest_burst"`
}

// NATSConfig configures the telemetry transport. When disabled, telemetry
// flows over an in-process channel.
type NATSConfig struct {
	Enabled          bool   `koanf:"enabled"`
	URL              string `koanf:"url"`
	EmbeddedServer   bool   `koanf:"embedded_server"`
	StoreDir         string `koanf:"store_dir"`
	MaxMemory        int64  `koanf:"max_memory"`
	MaxStore         int64  `koanf:"max_store"`
	SubscribersCount int    `koanf:"subscribers_count"`
	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`

	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterThrottlePerSecond    int64         `koanf:"router_throttle_per_second"`
	RouterPoisonQueueEnabled   bool          `koanf:"router_poison_queue_enabled"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `koanf:"level"`
	// Format is json or console.
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// IsProduction reports whether the environment is production.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
