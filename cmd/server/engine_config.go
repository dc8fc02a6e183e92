// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"fmt"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/config"
)

// engineConfig maps the loaded configuration onto the engine's settings.
func engineConfig(cfg *config.Config) (anticheat.Config, error) {
	a := cfg.Anticheat

	severities, err := anticheat.SeverityPolicyFromConfig(a.Severity)
	if err != nil {
		return anticheat.Config{}, fmt.Errorf("anticheat.severity: %w", err)
	}

	return anticheat.Config{
		Detectors: anticheat.DetectorConfig{
			SpeedSamples:        a.SpeedSamples,
			MaxSpeed:            a.MaxSpeed,
			TeleportDistance:    a.TeleportDistance,
			TeleportMaxInterval: a.TeleportMaxInterval,
			MaxVerticalSpeed:    a.MaxVerticalSpeed,
			AimbotMinKills:      a.AimbotMinKills,
			AimbotHeadshotRatio: a.AimbotHeadshotRatio,
			ESPDistance:         a.ESPDistance,
			ESPMinLongKills:     a.ESPMinLongKills,
			RapidFireKills:      a.RapidFireKills,
			RapidFireWindow:     a.RapidFireWindow,
		},
		Escalation: anticheat.EscalationPolicy{
			WarningThreshold:      a.WarningThreshold,
			TempBanThreshold:      a.TempBanThreshold,
			PermanentBanThreshold: a.PermanentBanThreshold,
			TempBanSeverity:       a.TempBanSeverity,
			PermanentBanSeverity:  a.PermanentBanSeverity,
			KickSeverity:          a.KickSeverity,
			TempBanDuration:       a.TempBanDuration,
		},
		Severities:             severities,
		MovementWindow:         a.MovementWindow,
		KillWindow:             a.KillWindow,
		Shards:                 a.Shards,
		ViolationWindow:        a.ViolationWindow,
		HistoryDays:            a.HistoryDays,
		StoreTimeout:           a.StoreTimeout,
		ResetKillStatsPerMatch: a.ResetKillStatsPerMatch,
		PresenceMaxAttempts:    cfg.Presence.MaxAttempts,
		PresenceAttemptTTL:     cfg.Presence.AttemptTTL,
	}, nil
}
