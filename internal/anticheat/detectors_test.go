// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"testing"
	"time"
)

// path builds samples step apart in time, each moved by delta from the last.
func path(start time.Time, step time.Duration, delta Vec3, n int) []MovementSample {
	out := make([]MovementSample, n)
	var pos Vec3
	for i := 0; i < n; i++ {
		out[i] = MovementSample{Position: pos, Timestamp: start.Add(time.Duration(i) * step)}
		pos = Vec3{pos.X + delta.X, pos.Y + delta.Y, pos.Z + delta.Z}
	}
	return out
}

func verdictTypes(vs []Verdict) map[ViolationType]bool {
	out := make(map[ViolationType]bool, len(vs))
	for _, v := range vs {
		out[v.Type] = true
	}
	return out
}

func TestDetectSpeed(t *testing.T) {
	cfg := DefaultDetectorConfig()

	tests := []struct {
		name    string
		samples []MovementSample
		want    bool
	}{
		{"4000 u/s flags", path(testEpoch, 50*time.Millisecond, Vec3{X: 200}, 3), true},
		{"200 u/s does not flag", path(testEpoch, time.Second, Vec3{X: 200}, 3), false},
		{"two samples gives no verdict", path(testEpoch, 50*time.Millisecond, Vec3{X: 200}, 2), false},
		{"diagonal distance is euclidean", path(testEpoch, 100*time.Millisecond, Vec3{X: 150, Y: 150}, 3), true},
		{"uses only the newest samples", append(
			path(testEpoch, 50*time.Millisecond, Vec3{X: 500}, 3),
			path(testEpoch.Add(time.Second), time.Second, Vec3{X: 10}, 3)...,
		), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, got := DetectSpeed(tt.samples, cfg)
			if got != tt.want {
				t.Fatalf("DetectSpeed = %v (%v), want %v", got, v.Details, tt.want)
			}
			if got && v.Type != ViolationSpeedHack {
				t.Errorf("Type = %s", v.Type)
			}
		})
	}
}

func TestDetectSpeed_ZeroElapsedCountsInDivisor(t *testing.T) {
	cfg := DefaultDetectorConfig()
	// First pair has dt = 0 and contributes nothing; second pair is 3000 u/s.
	// Mean over two pairs is 1500, under the ceiling.
	samples := []MovementSample{
		{Position: Vec3{}, Timestamp: testEpoch},
		{Position: Vec3{X: 100}, Timestamp: testEpoch},
		{Position: Vec3{X: 400}, Timestamp: testEpoch.Add(100 * time.Millisecond)},
	}
	if v, ok := DetectSpeed(samples, cfg); ok {
		t.Errorf("unexpected verdict: %v", v.Details)
	}
}

func TestDetectTeleport(t *testing.T) {
	cfg := DefaultDetectorConfig()

	jump := func(dt time.Duration) []MovementSample {
		return []MovementSample{
			{Position: Vec3{}, Timestamp: testEpoch},
			{Position: Vec3{X: 6000}, Timestamp: testEpoch.Add(dt)},
		}
	}
	if _, ok := DetectTeleport(jump(50*time.Millisecond), cfg); !ok {
		t.Error("6000 units in 0.05s should flag teleport")
	}
	if _, ok := DetectTeleport(jump(2*time.Second), cfg); ok {
		t.Error("6000 units over 2s should not flag teleport")
	}
	if _, ok := DetectTeleport(jump(50 * time.Millisecond)[:1], cfg); ok {
		t.Error("a single sample cannot teleport")
	}
}

func TestDetectFly(t *testing.T) {
	cfg := DefaultDetectorConfig()

	if _, ok := DetectFly(path(testEpoch, 100*time.Millisecond, Vec3{Z: 150}, 3), cfg); !ok {
		t.Error("1500 u/s upward should flag fly_hack")
	}
	if _, ok := DetectFly(path(testEpoch, 100*time.Millisecond, Vec3{Z: -150}, 3), cfg); ok {
		t.Error("falling should not flag fly_hack")
	}
	if _, ok := DetectFly(path(testEpoch, time.Second, Vec3{Z: 500}, 3), cfg); ok {
		t.Error("500 u/s upward should not flag fly_hack")
	}
}

// killsWindow builds a KillWindow the way the tracker does.
func killsWindow(kills []KillRecord) KillWindow {
	var stats KillStats
	for _, k := range kills {
		stats.TotalKills++
		if k.Headshot {
			stats.HeadshotCount++
		}
	}
	return KillWindow{Current: kills[len(kills)-1], Kills: kills, Stats: stats}
}

func spacedKills(n, headshots int, distance float64, gap time.Duration) []KillRecord {
	out := make([]KillRecord, n)
	for i := range out {
		out[i] = KillRecord{
			VictimAccountID: "victim",
			Distance:        distance,
			Headshot:        i < headshots,
			Timestamp:       testEpoch.Add(time.Duration(i) * gap),
		}
	}
	return out
}

func TestDetectAimbot(t *testing.T) {
	cfg := DefaultDetectorConfig()

	tests := []struct {
		name      string
		kills     int
		headshots int
		want      bool
	}{
		{"8 kills at 87.5% is under the minimum", 8, 7, false},
		{"10 kills at 90% flags", 10, 9, true},
		{"10 kills at exactly 80% does not flag", 10, 8, false},
		{"20 kills at 85% flags", 20, 17, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := killsWindow(spacedKills(tt.kills, tt.headshots, 50, 10*time.Second))
			v, got := DetectAimbot(w, cfg)
			if got != tt.want {
				t.Fatalf("DetectAimbot = %v, want %v", got, tt.want)
			}
			if got {
				pct, _ := v.Details["headshot_percentage"].(float64)
				if pct <= 80 {
					t.Errorf("headshot_percentage = %v", pct)
				}
			}
		})
	}
}

func TestDetectESP(t *testing.T) {
	cfg := DefaultDetectorConfig()

	tests := []struct {
		name    string
		long    int
		current float64
		want    bool
	}{
		{"six long kills flags", 6, 400, true},
		{"five long kills does not flag", 5, 400, false},
		{"short current kill never flags", 10, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kills := spacedKills(tt.long, 0, 350, 10*time.Second)
			kills[len(kills)-1].Distance = tt.current
			if tt.current <= cfg.ESPDistance {
				kills = append(kills, KillRecord{Distance: tt.current, Timestamp: testEpoch.Add(time.Hour)})
			}
			v, got := DetectESP(killsWindow(kills), cfg)
			if got != tt.want {
				t.Fatalf("DetectESP = %v (%v), want %v", got, v.Details, tt.want)
			}
			if got {
				if _, ok := v.Details["avg_distance"]; !ok {
					t.Error("details should carry avg_distance")
				}
			}
		})
	}
}

func TestDetectRapidFire(t *testing.T) {
	cfg := DefaultDetectorConfig()

	if v, ok := DetectRapidFire(killsWindow(spacedKills(3, 0, 20, 900*time.Millisecond)), cfg); !ok {
		t.Error("3 kills in 1.8s should flag rapid_fire")
	} else if ms, _ := v.Details["time_span_ms"].(int64); ms != 1800 {
		t.Errorf("time_span_ms = %v, want 1800", v.Details["time_span_ms"])
	}
	if _, ok := DetectRapidFire(killsWindow(spacedKills(3, 0, 20, time.Second)), cfg); ok {
		t.Error("3 kills in exactly 2s should not flag")
	}
	if _, ok := DetectRapidFire(killsWindow(spacedKills(2, 0, 20, time.Millisecond)), cfg); ok {
		t.Error("2 kills cannot be rapid fire")
	}
}

func TestEvaluateKill_ReturnsAllVerdicts(t *testing.T) {
	cfg := DefaultDetectorConfig()
	// 10 long-range headshot kills 100ms apart: rapid fire, aimbot and ESP.
	kills := spacedKills(10, 10, 500, 100*time.Millisecond)

	got := verdictTypes(EvaluateKill(killsWindow(kills), cfg))
	for _, want := range []ViolationType{ViolationRapidFire, ViolationAimbot, ViolationESP} {
		if !got[want] {
			t.Errorf("missing %s verdict, got %v", want, got)
		}
	}
}

func TestEvaluateMovement_ReturnsAllVerdicts(t *testing.T) {
	cfg := DefaultDetectorConfig()
	// Straight up 6000 units every 50ms: speed, teleport and fly together.
	samples := path(testEpoch, 50*time.Millisecond, Vec3{Z: 6000}, 3)

	got := verdictTypes(EvaluateMovement(samples, cfg))
	if len(got) != 3 || !got[ViolationSpeedHack] || !got[ViolationTeleport] || !got[ViolationFlyHack] {
		t.Errorf("verdicts = %v", got)
	}
}
