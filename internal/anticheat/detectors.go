// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import "time"

// DetectorConfig holds every detector threshold.
type DetectorConfig struct {
	// SpeedSamples is how many recent samples the speed and fly checks average over.
	SpeedSamples        int
	MaxSpeed            float64 // units/s
	TeleportDistance    float64
	TeleportMaxInterval time.Duration
	MaxVerticalSpeed    float64 // units/s, upward

	AimbotMinKills      int
	AimbotHeadshotRatio float64
	ESPDistance         float64
	ESPMinLongKills     int // flags when more than this many stored kills are long range
	RapidFireKills      int
	RapidFireWindow     time.Duration
}

// DefaultDetectorConfig returns the production thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
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
	}
}

// movementLookback is how many recent samples EvaluateMovement needs.
func (c DetectorConfig) movementLookback() int {
	if c.SpeedSamples < 2 {
		return 2
	}
	return c.SpeedSamples
}

func tail[T any](s []T, n int) []T {
	if n < len(s) {
		return s[len(s)-n:]
	}
	return s
}

// DetectSpeed flags a mean Euclidean speed above MaxSpeed over
// the last SpeedSamples samples. Pairs with non-positive elapsed time add
// nothing but still count toward the divisor.
func DetectSpeed(samples []MovementSample, cfg DetectorConfig) (Verdict, bool) {
	if len(samples) < cfg.SpeedSamples || cfg.SpeedSamples < 2 {
		return Verdict{}, false
	}
	recent := tail(samples, cfg.SpeedSamples)

	var total float64
	for i := 1; i < len(recent); i++ {
		dt := recent[i].Timestamp.Sub(recent[i-1].Timestamp).Seconds()
		if dt > 0 {
			total += recent[i].Position.Distance(recent[i-1].Position) / dt
		}
	}
	avg := total / float64(len(recent)-1)
	if avg <= cfg.MaxSpeed {
		return Verdict{}, false
	}
	return Verdict{
		Type: ViolationSpeedHack,
		Details: map[string]interface{}{
			"avg_speed": avg,
			"max_speed": cfg.MaxSpeed,
			"samples":   len(recent),
		},
	}, true
}

// DetectTeleport flags a displacement above TeleportDistance between the two
// newest samples when they are less than TeleportMaxInterval apart.
func DetectTeleport(samples []MovementSample, cfg DetectorConfig) (Verdict, bool) {
	if len(samples) < 2 {
		return Verdict{}, false
	}
	prev, cur := samples[len(samples)-2], samples[len(samples)-1]
	dist := cur.Position.Distance(prev.Position)
	elapsed := cur.Timestamp.Sub(prev.Timestamp)
	if dist <= cfg.TeleportDistance || elapsed >= cfg.TeleportMaxInterval {
		return Verdict{}, false
	}
	return Verdict{
		Type: ViolationTeleport,
		Details: map[string]interface{}{
			"distance":   dist,
			"time_delta": elapsed.Seconds(),
		},
	}, true
}

// DetectFly flags a mean upward velocity above MaxVerticalSpeed over the last
// SpeedSamples samples.
func DetectFly(samples []MovementSample, cfg DetectorConfig) (Verdict, bool) {
	if len(samples) < cfg.SpeedSamples || cfg.SpeedSamples < 2 {
		return Verdict{}, false
	}
	recent := tail(samples, cfg.SpeedSamples)

	var total float64
	for i := 1; i < len(recent); i++ {
		dt := recent[i].Timestamp.Sub(recent[i-1].Timestamp).Seconds()
		if dt > 0 {
			total += (recent[i].Position.Z - recent[i-1].Position.Z) / dt
		}
	}
	avg := total / float64(len(recent)-1)
	if avg <= cfg.MaxVerticalSpeed {
		return Verdict{}, false
	}
	return Verdict{
		Type: ViolationFlyHack,
		Details: map[string]interface{}{
			"vertical_speed":     avg,
			"max_vertical_speed": cfg.MaxVerticalSpeed,
		},
	}, true
}

// DetectAimbot flags a lifetime headshot ratio above AimbotHeadshotRatio once
// AimbotMinKills kills have been counted.
func DetectAimbot(w KillWindow, cfg DetectorConfig) (Verdict, bool) {
	if w.Stats.TotalKills < cfg.AimbotMinKills {
		return Verdict{}, false
	}
	ratio := w.Stats.HeadshotRatio()
	if ratio <= cfg.AimbotHeadshotRatio {
		return Verdict{}, false
	}
	return Verdict{
		Type: ViolationAimbot,
		Details: map[string]interface{}{
			"headshot_percentage": ratio * 100,
			"total_kills":         w.Stats.TotalKills,
		},
	}, true
}

// DetectESP flags a long-range kill when more than ESPMinLongKills of the
// stored kills, the current one included, are long range.
func DetectESP(w KillWindow, cfg DetectorConfig) (Verdict, bool) {
	if w.Current.Distance <= cfg.ESPDistance {
		return Verdict{}, false
	}
	var long int
	var sum float64
	for _, k := range w.Kills {
		sum += k.Distance
		if k.Distance > cfg.ESPDistance {
			long++
		}
	}
	if long <= cfg.ESPMinLongKills {
		return Verdict{}, false
	}
	return Verdict{
		Type: ViolationESP,
		Details: map[string]interface{}{
			"avg_distance": sum / float64(len(w.Kills)),
			"long_kills":   long,
		},
	}, true
}

// DetectRapidFire flags RapidFireKills kills inside RapidFireWindow,
// measured from the first to the last of the newest kills.
func DetectRapidFire(w KillWindow, cfg DetectorConfig) (Verdict, bool) {
	if cfg.RapidFireKills < 2 || len(w.Kills) < cfg.RapidFireKills {
		return Verdict{}, false
	}
	recent := tail(w.Kills, cfg.RapidFireKills)
	span := recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp)
	if span >= cfg.RapidFireWindow {
		return Verdict{}, false
	}
	return Verdict{
		Type: ViolationRapidFire,
		Details: map[string]interface{}{
			"time_span_ms": span.Milliseconds(),
			"kills":        len(recent),
		},
	}, true
}

// EvaluateMovement runs every movement detector and returns all verdicts.
func EvaluateMovement(samples []MovementSample, cfg DetectorConfig) []Verdict {
	var out []Verdict
	for _, detect := range []func([]MovementSample, DetectorConfig) (Verdict, bool){
		DetectSpeed, DetectTeleport, DetectFly,
	} {
		if v, ok := detect(samples, cfg); ok {
			out = append(out, v)
		}
	}
	return out
}

// EvaluateKill runs every kill detector and returns all verdicts.
func EvaluateKill(w KillWindow, cfg DetectorConfig) []Verdict {
	var out []Verdict
	for _, detect := range []func(KillWindow, DetectorConfig) (Verdict, bool){
		DetectRapidFire, DetectAimbot, DetectESP,
	} {
		if v, ok := detect(w, cfg); ok {
			out = append(out, v)
		}
	}
	return out
}

// countsAsSuspiciousKill reports whether a verdict increments SuspiciousKills.
func countsAsSuspiciousKill(t ViolationType) bool {
	return t == ViolationAimbot || t == ViolationESP
}
