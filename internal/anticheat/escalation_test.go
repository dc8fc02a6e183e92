// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"testing"
	"time"
)

func TestEscalationPolicy_Decide(t *testing.T) {
	p := DefaultEscalationPolicy()

	tests := []struct {
		severity int
		count    int
		want     Action
	}{
		{1, 1, ActionNone},
		{6, 2, ActionNone},
		{1, 3, ActionWarning},
		{6, 4, ActionWarning},
		{1, 5, ActionTempBan},
		{7, 1, ActionTempBan},
		{8, 9, ActionTempBan},
		{1, 10, ActionPermanentBan},
		{9, 1, ActionPermanentBan},
		{10, 1, ActionPermanentBan},
	}
	for _, tt := range tests {
		got := p.Decide(tt.severity, tt.count)
		if got != tt.want {
			t.Errorf("Decide(%d, %d) = %s, want %s", tt.severity, tt.count, got, tt.want)
		}
	}
}

func TestEscalationPolicy_Enforcement(t *testing.T) {
	p := DefaultEscalationPolicy()

	e, ok := p.Enforcement(ActionTempBan, testEpoch)
	if !ok || e.Type != BanMatchmaking || e.Reason != ReasonSuspiciousActivity {
		t.Fatalf("temp ban enforcement = %+v, %v", e, ok)
	}
	if e.ExpiresAt == nil || !e.ExpiresAt.Equal(testEpoch.Add(24*time.Hour)) {
		t.Errorf("ExpiresAt = %v", e.ExpiresAt)
	}

	e, ok = p.Enforcement(ActionPermanentBan, testEpoch)
	if !ok || e.Type != BanPermanent || e.ExpiresAt != nil || e.Reason != ReasonMultipleViolations {
		t.Errorf("permanent enforcement = %+v, %v", e, ok)
	}

	for _, a := range []Action{ActionNone, ActionWarning} {
		if _, ok := p.Enforcement(a, testEpoch); ok {
			t.Errorf("%s should not ban", a)
		}
	}
}

func TestEscalationPolicy_ShouldKick(t *testing.T) {
	p := DefaultEscalationPolicy()
	if p.ShouldKick(6) || !p.ShouldKick(7) || !p.ShouldKick(10) {
		t.Error("kick threshold should be severity 7")
	}
}

func TestSeverityPolicy_Combine(t *testing.T) {
	s := DefaultSeverities()

	tests := []struct {
		name         string
		verdicts     []ViolationType
		wantType     ViolationType
		wantSeverity int
	}{
		{"single", []ViolationType{ViolationSpeedHack}, ViolationSpeedHack, 6},
		{"highest base wins", []ViolationType{ViolationSpeedHack, ViolationTeleport}, ViolationTeleport, 9},
		{"tie keeps first", []ViolationType{ViolationSpeedHack, ViolationFlyHack}, ViolationSpeedHack, 7},
		{"three verdicts", []ViolationType{ViolationRapidFire, ViolationAimbot, ViolationESP}, ViolationAimbot, 10},
		{"capped at 10", []ViolationType{ViolationTeleport, ViolationAimbot, ViolationESP, ViolationSpeedHack}, ViolationTeleport, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := make([]Verdict, len(tt.verdicts))
			for i, v := range tt.verdicts {
				vs[i] = Verdict{Type: v}
			}
			gotType, gotSeverity := s.Combine(vs)
			if gotType != tt.wantType || gotSeverity != tt.wantSeverity {
				t.Errorf("Combine = (%s, %d), want (%s, %d)", gotType, gotSeverity, tt.wantType, tt.wantSeverity)
			}
		})
	}

	if typ, sev := s.Combine(nil); typ != "" || sev != 0 {
		t.Errorf("Combine(nil) = (%s, %d)", typ, sev)
	}
}

func TestSeverityPolicyFromConfig(t *testing.T) {
	s, err := SeverityPolicyFromConfig(map[string]int{"aimbot": 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s[ViolationAimbot] != 9 || s[ViolationTeleport] != 8 {
		t.Errorf("policy = %v", s)
	}

	if _, err := SeverityPolicyFromConfig(map[string]int{"wallhack": 5}); err == nil {
		t.Error("unknown type should be rejected")
	}
	if _, err := SeverityPolicyFromConfig(map[string]int{"esp": 11}); err == nil {
		t.Error("severity 11 should be rejected")
	}
}

func TestVerdictDetails(t *testing.T) {
	verdicts := []Verdict{
		{Type: ViolationSpeedHack, Details: map[string]interface{}{"avg_speed": 4000.0}},
		{Type: ViolationTeleport, Details: map[string]interface{}{"distance": 6000.0}},
	}
	d := verdictDetails(ViolationTeleport, verdicts)

	if d["distance"] != 6000.0 {
		t.Errorf("primary details missing: %v", d)
	}
	if _, ok := d["avg_speed"]; ok {
		t.Error("secondary details should not be flattened")
	}
	types, _ := d["detections"].([]string)
	if len(types) != 2 || types[0] != "speed_hack" || types[1] != "teleport" {
		t.Errorf("detections = %v", d["detections"])
	}
	if _, ok := d["verdicts"]; !ok {
		t.Error("multiple verdicts should be listed")
	}
	if d["source"] != "telemetry" {
		t.Errorf("source = %v", d["source"])
	}
}
