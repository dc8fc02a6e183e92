// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sentinel/config.yaml",
	"/etc/sentinel/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/sentinel.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Anticheat: AnticheatConfig{
			MovementWindow: 100,
			KillWindow:     50,
			Shards:         64,

			SpeedSamples:        3,
			MaxSpeed:            2000,
			TeleportDistance:    5000,
			TeleportMaxInterval: 100 * time.Millisecond,
			MaxVerticalSpeed:    1000,

			AimbotMinKills:      10,
			AimbotHeadshotRatio: 0.80,
			ESPDistance:         300,
			ESPMinLongKills:     5,
			RapidFireKills:      3,
			RapidFireWindow:     2 * time.Second,

			WarningThreshold:      3,
			TempBanThreshold:      5,
			PermanentBanThreshold: 10,
			TempBanSeverity:       7,
			PermanentBanSeverity:  9,
			KickSeverity:          7,
			ViolationWindow:       7 * 24 * time.Hour,
			TempBanDuration:       24 * time.Hour,
			HistoryDays:           30,

			SweepInterval: time.Hour,
			StoreTimeout:  5 * time.Second,

			ResetKillStatsPerMatch: false,

			Severity: map[string]int{
				"speed_hack":   6,
				"teleport":     8,
				"fly_hack":     6,
				"aimbot":       8,
				"esp_wallhack": 7,
				"rapid_fire":   5,
			},
		},
		Presence: PresenceConfig{
			APIKey:      "",
			MaxAttempts: 3,
			AttemptTTL:  5 * time.Minute,
		},
		Credentials: CredentialsConfig{
			Path:       "/data/credentials",
			InMemory:   false,
			JWTSecret:  "",
			Issuer:     "sentinel",
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			CORSOrigins:         []string{"*"},
			RateLimitReqs:       100,
			RateLimitWindow:     time.Minute,
			RateLimitDisabled:   false,
			IngestRatePerSecond: 60,
			IngestBurst:         120,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/nats/jetstream",
			MaxMemory:        256 << 20,
			MaxStore:         2 << 30,
			SubscribersCount: 4,
			DurableName:      "anticheat-engine",
			QueueGroup:       "anticheat",

			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterThrottlePerSecond:    0,
			RouterPoisonQueueEnabled:   true,
			RouterPoisonQueueTopic:     "anticheat.poison",
			RouterCloseTimeout:         30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, then the config file, then
// environment variables, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are accepted as comma-separated strings from env vars.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"server_host":  "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"anticheat_movement_window":         "anticheat.movement_window",
	"anticheat_kill_window":             "anticheat.kill_window",
	"anticheat_shards":                  "anticheat.shards",
	"anticheat_max_speed":               "anticheat.max_speed",
	"anticheat_teleport_distance":       "anticheat.teleport_distance",
	"anticheat_max_vertical_speed":      "anticheat.max_vertical_speed",
	"anticheat_aimbot_min_kills":        "anticheat.aimbot_min_kills",
	"anticheat_aimbot_headshot_ratio":   "anticheat.aimbot_headshot_ratio",
	"anticheat_esp_distance":            "anticheat.esp_distance",
	"anticheat_rapid_fire_window":       "anticheat.rapid_fire_window",
	"anticheat_violation_window":        "anticheat.violation_window",
	"anticheat_temp_ban_duration":       "anticheat.temp_ban_duration",
	"anticheat_history_days":            "anticheat.history_days",
	"anticheat_sweep_interval":          "anticheat.sweep_interval",
	"anticheat_store_timeout":           "anticheat.store_timeout",
	"anticheat_reset_kill_stats":        "anticheat.reset_kill_stats_per_match",
	"anticheat_warning_threshold":       "anticheat.warning_threshold",
	"anticheat_temp_ban_threshold":      "anticheat.temp_ban_threshold",
	"anticheat_permanent_ban_threshold": "anticheat.permanent_ban_threshold",

	"presence_api_key":      "presence.api_key",
	"presence_max_attempts": "presence.max_attempts",
	"presence_attempt_ttl":  "presence.attempt_ttl",

	"credentials_path":        "credentials.path",
	"credentials_in_memory":   "credentials.in_memory",
	"jwt_secret":              "credentials.jwt_secret",
	"jwt_issuer":              "credentials.issuer",
	"credentials_access_ttl":  "credentials.access_ttl",
	"credentials_refresh_ttl": "credentials.refresh_ttl",

	"admin_username":         "security.admin_username",
	"admin_password":         "security.admin_password",
	"moderator_username":     "security.moderator_username",
	"moderator_password":     "security.moderator_password",
	"authz_policy_path":      "security.authz_policy_path",
	"cors_origins":           "security.cors_origins",
	"rate_limit_requests":    "security.rate_limit_requests",
	"rate_limit_window":      "security.rate_limit_window",
	"disable_rate_limit":     "security.rate_limit_disabled",
	"ingest_rate_per_second": "security.ingest_rate_per_second",
	"ingest_burst":           "security.ingest_burst",

	"nats_enabled":            "nats.enabled",
	"nats_url":                "nats.url",
	"nats_embedded":           "nats.embedded_server",
	"nats_store_dir":          "nats.store_dir",
	"nats_max_memory":         "nats.max_memory",
	"nats_max_store":          "nats.max_store",
	"nats_subscribers":        "nats.subscribers_count",
	"nats_durable_name":       "nats.durable_name",
	"nats_queue_group":        "nats.queue_group",
	"nats_router_retries":     "nats.router_retry_count",
	"nats_router_throttle":    "nats.router_throttle_per_second",
	"nats_poison_queue":       "nats.router_poison_queue_enabled",
	"nats_poison_queue_topic": "nats.router_poison_queue_topic",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps known environment variables onto config paths.
// Unknown variables return "" and are ignored.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
