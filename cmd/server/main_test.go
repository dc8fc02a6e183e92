// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/api"
	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func TestEngineConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Anticheat = config.AnticheatConfig{
		MovementWindow:        10,
		KillWindow:            20,
		MaxSpeed:              15,
		AimbotHeadshotRatio:   0.85,
		RapidFireWindow:       2 * time.Second,
		WarningThreshold:      3,
		PermanentBanThreshold: 10,
		TempBanDuration:       24 * time.Hour,
		StoreTimeout:          3 * time.Second,
		Severity:              map[string]int{"aimbot": 9},
	}
	cfg.Presence = config.PresenceConfig{MaxAttempts: 5, AttemptTTL: 15 * time.Minute}

	got, err := engineConfig(cfg)
	if err != nil {
		t.Fatalf("engineConfig failed: %v", err)
	}

	if got.MovementWindow != 10 || got.KillWindow != 20 {
		t.Errorf("windows = %d/%d", got.MovementWindow, got.KillWindow)
	}
	if got.Detectors.MaxSpeed != 15 || got.Detectors.AimbotHeadshotRatio != 0.85 || got.Detectors.RapidFireWindow != 2*time.Second {
		t.Errorf("detectors = %+v", got.Detectors)
	}
	if got.Escalation.WarningThreshold != 3 || got.Escalation.PermanentBanThreshold != 10 || got.Escalation.TempBanDuration != 24*time.Hour {
		t.Errorf("escalation = %+v", got.Escalation)
	}
	if got.Severities[anticheat.ViolationAimbot] != 9 {
		t.Errorf("aimbot severity = %d, want 9", got.Severities[anticheat.ViolationAimbot])
	}
	if got.Severities[anticheat.ViolationTeleport] != 8 {
		t.Errorf("teleport severity = %d, want default 8", got.Severities[anticheat.ViolationTeleport])
	}
	if got.PresenceMaxAttempts != 5 || got.PresenceAttemptTTL != 15*time.Minute || got.StoreTimeout != 3*time.Second {
		t.Errorf("presence/store = %d %v %v", got.PresenceMaxAttempts, got.PresenceAttemptTTL, got.StoreTimeout)
	}
}

func TestEngineConfig_InvalidSeverity(t *testing.T) {
	tests := []struct {
		name     string
		severity map[string]int
	}{
		{"unknown type", map[string]int{"wallhack": 5}},
		{"out of range", map[string]int{"aimbot": 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Anticheat.Severity = tt.severity
			if _, err := engineConfig(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInitAuth(t *testing.T) {
	sec := &config.SecurityConfig{
		AdminUsername:     "root",
		AdminPassword:     "administrator-password",
		ModeratorUsername: "mod",
		ModeratorPassword: "moderator-password",
	}
	presence := &config.PresenceConfig{APIKey: "presence-key"}

	c, err := initAuth(sec, presence)
	if err != nil {
		t.Fatalf("initAuth failed: %v", err)
	}
	if c.operators != 2 {
		t.Errorf("operators = %d, want 2", c.operators)
	}
	if !c.apiKey.Valid("presence-key") {
		t.Error("configured API key should be valid")
	}

	// Maintenance routes are admin-only.
	tests := []struct {
		name   string
		object string
		action string
		user   string
		pass   string
		want   int
	}{
		{"moderator bans", auth.ObjectBans, auth.ActionWrite, "mod", "moderator-password", http.StatusOK},
		{"moderator cannot sweep", auth.ObjectSweep, auth.ActionWrite, "mod", "moderator-password", http.StatusForbidden},
		{"admin sweeps", auth.ObjectSweep, auth.ActionWrite, "root", "administrator-password", http.StatusOK},
		{"wrong password", auth.ObjectBans, auth.ActionRead, "root", "wrong-password", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
			h := c.middleware.Authenticate(c.middleware.Authorize(tt.object, tt.action)(ok))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/anticheat/bans/acc-1", nil)
			req.SetBasicAuth(tt.user, tt.pass)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestInitAuth_Errors(t *testing.T) {
	tests := []struct {
		name     string
		sec      config.SecurityConfig
		presence config.PresenceConfig
	}{
		{"missing api key", config.SecurityConfig{}, config.PresenceConfig{}},
		{"short password", config.SecurityConfig{AdminUsername: "root", AdminPassword: "short"}, config.PresenceConfig{APIKey: "k"}},
		{"duplicate operator", config.SecurityConfig{
			AdminUsername: "same", AdminPassword: "administrator-password",
			ModeratorUsername: "same", ModeratorPassword: "moderator-password",
		}, config.PresenceConfig{APIKey: "k"}},
		{"missing policy file", config.SecurityConfig{AuthzPolicyPath: "/nonexistent/policy.csv"}, config.PresenceConfig{APIKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := initAuth(&tt.sec, &tt.presence); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInitTransport_InProcessByDefault(t *testing.T) {
	c, err := initTransport(&config.Config{})
	if err != nil {
		t.Fatalf("initTransport failed: %v", err)
	}
	defer c.Close()

	if c.transport.Kind != "gochannel" {
		t.Errorf("kind = %q, want gochannel", c.transport.Kind)
	}
	checks := map[string]api.ReadinessCheck{}
	c.addChecks(checks)
	if len(checks) != 0 {
		t.Errorf("checks = %d, want 0", len(checks))
	}
}
