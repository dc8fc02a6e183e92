// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package config

import (
	"fmt"
	"strings"
)

const (
	minJWTSecretLength    = 32
	minPresenceKeyLength  = 16
	minOperatorPassLength = 12
)

// knownViolationTypes must all have a severity entry.
var knownViolationTypes = []string{
	"speed_hack", "teleport", "fly_hack", "aimbot", "esp_wallhack", "rapid_fire",
}

// Validate checks the loaded configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAnticheat(); err != nil {
		return err
	}
	if err := c.validatePresence(); err != nil {
		return err
	}
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	return nil
}

func (c *Config) validateAnticheat() error {
	a := c.Anticheat
	if a.MovementWindow < 3 {
		return fmt.Errorf("ANTICHEAT_MOVEMENT_WINDOW must be at least 3, got %d", a.MovementWindow)
	}
	if a.KillWindow < a.RapidFireKills {
		return fmt.Errorf("ANTICHEAT_KILL_WINDOW (%d) must hold at least rapid_fire_kills (%d)", a.KillWindow, a.RapidFireKills)
	}
	if a.Shards < 1 {
		return fmt.Errorf("ANTICHEAT_SHARDS must be positive")
	}
	if a.SpeedSamples < 2 || a.SpeedSamples > a.MovementWindow {
		return fmt.Errorf("anticheat.speed_samples must be between 2 and the movement window")
	}
	if a.AimbotHeadshotRatio <= 0 || a.AimbotHeadshotRatio > 1 {
		return fmt.Errorf("ANTICHEAT_AIMBOT_HEADSHOT_RATIO must be in (0, 1], got %v", a.AimbotHeadshotRatio)
	}
	if !(a.WarningThreshold <= a.TempBanThreshold && a.TempBanThreshold <= a.PermanentBanThreshold) {
		return fmt.Errorf("escalation thresholds must be ordered warning <= temp_ban <= permanent_ban")
	}
	if a.TempBanSeverity > a.PermanentBanSeverity {
		return fmt.Errorf("anticheat.temp_ban_severity must not exceed permanent_ban_severity")
	}
	if a.ViolationWindow <= 0 || a.TempBanDuration <= 0 || a.SweepInterval <= 0 || a.StoreTimeout <= 0 {
		return fmt.Errorf("anticheat durations must be positive")
	}
	if a.HistoryDays < 1 {
		return fmt.Errorf("ANTICHEAT_HISTORY_DAYS must be at least 1")
	}
	for _, vt := range knownViolationTypes {
		sev, ok := a.Severity[vt]
		if !ok {
			return fmt.Errorf("anticheat.severity.%s is missing", vt)
		}
		if sev < 1 || sev > 10 {
			return fmt.Errorf("anticheat.severity.%s must be between 1 and 10, got %d", vt, sev)
		}
	}
	return nil
}

func (c *Config) validatePresence() error {
	if len(c.Presence.APIKey) < minPresenceKeyLength {
		return fmt.Errorf("PRESENCE_API_KEY must be at least %d characters", minPresenceKeyLength)
	}
	if c.Presence.MaxAttempts < 1 {
		return fmt.Errorf("PRESENCE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Presence.AttemptTTL <= 0 {
		return fmt.Errorf("PRESENCE_ATTEMPT_TTL must be positive")
	}
	return nil
}

func (c *Config) validateCredentials() error {
	if len(c.Credentials.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Credentials.AccessTTL <= 0 || c.Credentials.RefreshTTL < c.Credentials.AccessTTL {
		return fmt.Errorf("credential TTLs must be positive and refresh_ttl >= access_ttl")
	}
	if !c.Credentials.InMemory && c.Credentials.Path == "" {
		return fmt.Errorf("CREDENTIALS_PATH is required unless CREDENTIALS_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if err := validateOperator("ADMIN", s.AdminUsername, s.AdminPassword); err != nil {
		return err
	}
	if err := validateOperator("MODERATOR", s.ModeratorUsername, s.ModeratorPassword); err != nil {
		return err
	}
	if !s.RateLimitDisabled && (s.RateLimitReqs < 1 || s.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if s.IngestRatePerSecond <= 0 || s.IngestBurst < 1 {
		return fmt.Errorf("INGEST_RATE_PER_SECOND and INGEST_BURST must be positive")
	}
	if c.Server.IsProduction() {
		for _, o := range s.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}

// validateOperator requires a password whenever a username is configured.
func validateOperator(prefix, username, password string) error {
	if username == "" {
		return nil
	}
	if len(password) < minOperatorPassLength {
		return fmt.Errorf("%s_PASSWORD must be at least %d characters when %s_USERNAME is set",
			prefix, minOperatorPassLength, prefix)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer && !strings.HasPrefix(c.NATS.URL, "nats://") {
		return fmt.Errorf("NATS_URL must start with nats:// when using an external server")
	}
	if c.NATS.SubscribersCount < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console; got %q", c.Logging.Format)
	}
}
